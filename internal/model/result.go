package model

// Execution result statuses. Every gateway call produces exactly one result
// carrying one of these; statement failures are data, not faults.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExecResult is the uniform outcome of one SQL execution. It mirrors the
// single-row shape of the remote execute_sql procedure: a status
// discriminator plus a human-readable message (the engine's diagnostic text
// verbatim on error).
type ExecResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Success builds a success result with the given message.
func Success(message string) ExecResult {
	return ExecResult{Status: StatusSuccess, Message: message}
}

// Error builds an error result carrying the engine diagnostic.
func Error(message string) ExecResult {
	return ExecResult{Status: StatusError, Message: message}
}

// OK reports whether the execution succeeded.
func (r ExecResult) OK() bool {
	return r.Status == StatusSuccess
}
