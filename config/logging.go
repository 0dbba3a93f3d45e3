package config

import "go.uber.org/zap"

// setLogger builds the zap logger matching the running environment
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "local":
		return zap.NewExample(), nil
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
