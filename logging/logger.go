package logging

import "go.uber.org/zap"

// New returns the global sugared logger scoped to a component name
func New(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}
