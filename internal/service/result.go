package service

// Result is the uniform outcome of every mutating operation. Internal
// failures never escape a service; they are logged and collapsed into a
// failed Result with a short human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func success(message string) Result {
	return Result{Success: true, Message: message}
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}
