package domain

import "time"

// ModerationSession is the credential pair required by the external moderation service.
// SessionCookies is ready to be sent as a Cookie header.
type ModerationSession struct {
	SessionCookies string    `cbor:"1,keyasint"`
	CSRFToken      string    `cbor:"2,keyasint"`
	AcquiredAt     time.Time `cbor:"3,keyasint"`
}

func (s ModerationSession) IsZero() bool {
	return s.SessionCookies == "" || s.CSRFToken == ""
}

// ModerationResult is the verdict on a candidate text.
type ModerationResult struct {
	Sensitive bool
	Reasons   []string
}
