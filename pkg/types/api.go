package types

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// SessionsResponse wraps the saved sessions returned by GET /sessions.
type SessionsResponse struct {
	Sessions []SavedSession `json:"sessions"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// SessionStatus summarizes one connected session for /status.
type SessionStatus struct {
	// example: 0b7c5e0a-4a8e-4a43-9c55-3c1e0a4d2f11
	ID string `json:"id"`
	// Lifecycle state (uninitialized, model-loading, ready, ingesting, generating, busy, closed).
	// example: ready
	State string `json:"state" example:"ready"`
	// Model loaded in the session context, if any.
	ModelPath string `json:"model_path,omitempty"`
	// Number of messages in the conversation log.
	Messages int `json:"messages"`
	// Id of the saved session loaded last, if any.
	ActiveSave string `json:"active_save,omitempty"`
	// Deliveries waiting in the session dispatcher.
	Pending int `json:"pending"`
	// Connection time in unix seconds.
	ConnectedUnix int64 `json:"connected_unix"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Sessions []SessionStatus `json:"sessions"`
	// Overall state (ready, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// Whether the native llama backend was compiled in.
	LlamaBuilt bool `json:"llama_built"`
	// Total sessions opened since start.
	SessionsTotal uint64 `json:"sessions_total"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
}
