package models

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message string
	Error   string
}

// HealthCheckResponse is returned by the health endpoint
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// PaginatedResponse holds the structure for paginated feed responses
type PaginatedResponse struct {
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalCount int64    `json:"totalCount"`
	Data       []Report `json:"data"`
}
