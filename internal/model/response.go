package model

// ListResponse is the envelope for admin list endpoints.
type ListResponse[T any] struct {
	Resource []T          `json:"resource"`
	Meta     ResponseMeta `json:"meta"`
}

// ResponseMeta carries the result count of a list response.
type ResponseMeta struct {
	Count int `json:"count"`
}

// ErrorResponse is the body of every error response. The message is chosen
// from a fixed set so clients can rely on it; status codes carry the kind.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a mutation without returning a resource.
type MessageResponse struct {
	Message string `json:"message"`
}
