package stepup

import "github.com/pquerna/otp/totp"

// Verifier checks a code against an enrolled OTP secret.
type Verifier interface {
	Verify(secret, code string) bool
}

// TOTPVerifier validates codes from an authenticator app.
type TOTPVerifier struct{}

func (TOTPVerifier) Verify(secret, code string) bool {
	return totp.Validate(code, secret)
}
