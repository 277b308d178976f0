package port

// ResetMetrics captures telemetry hooks for the reset code lifecycle.
type ResetMetrics interface {
	CodeIssued(result string)
	CodeValidated(result string)
	PasswordChanged(result string)
	CodesSwept(count int64)
	RateLimitRejected()
}
