package domain

// Verification is the outcome of a human-verification token check.
type Verification struct {
	Success    bool
	ErrorCodes []string
}
