package stepup

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const (
	// InvalidCodeMessage is the only message surfaced for a wrong code,
	// regardless of why it was wrong, so failures give no verification oracle.
	InvalidCodeMessage = "Invalid code. Please try again."

	challengeTTL = 5 * time.Minute
	markerTTL    = 5 * time.Minute
)

var (
	// ErrInvalidCode marks the bad-code failure mode. Callers translate it to
	// InvalidCodeMessage; every other error surfaces its own message.
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrNoChallenge means no challenge was issued for this (user, purpose),
	// or it expired, or a previous attempt already consumed it.
	ErrNoChallenge = errors.New("no active verification challenge for this action")

	// ErrUnknownPurpose rejects issuing challenges outside the fixed enum.
	ErrUnknownPurpose = errors.New("unknown verification purpose")

	codeFormat = regexp.MustCompile(`^[0-9]{6}$`)
)

// Service issues and verifies purpose-scoped step-up challenges. Challenges
// are single-use: any verification attempt, right or wrong, consumes the
// challenge (ISSUED -> VERIFIED | FAILED), and expiry handles the rest.
type Service struct {
	store    Store
	verifier Verifier
}

// NewService creates a step-up service over the given store and OTP verifier.
func NewService(store Store, verifier Verifier) *Service {
	return &Service{store: store, verifier: verifier}
}

// Issue creates a fresh challenge for (user, purpose) and returns the 6-digit
// code for delivery. Users with an enrolled authenticator still get a
// challenge record (it binds the purpose), but verify against their TOTP
// secret instead of the delivered code.
func (s *Service) Issue(ctx context.Context, userID uint, purpose Purpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrUnknownPurpose
	}
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, challengeKey(userID, purpose), code, challengeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks a submitted code against the (user, purpose) challenge. On
// success a short-lived verified marker is written for the gate to consume.
// The purpose is part of the challenge key, so a code issued for one purpose
// can never verify under another.
func (s *Service) Verify(ctx context.Context, userID uint, purpose Purpose, code string, totpSecret string) error {
	if !codeFormat.MatchString(code) {
		return ErrInvalidCode
	}

	stored, err := s.store.Consume(ctx, challengeKey(userID, purpose))
	if err != nil {
		return err
	}
	if stored == "" {
		return ErrNoChallenge
	}

	if totpSecret != "" {
		if !s.verifier.Verify(totpSecret, code) {
			return ErrInvalidCode
		}
	} else if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidCode
	}

	return s.store.Put(ctx, markerKey(userID, purpose), "1", markerTTL)
}

// ConsumeVerification atomically claims the verified marker for
// (user, purpose). It returns true exactly once per successful verification.
func (s *Service) ConsumeVerification(ctx context.Context, userID uint, purpose Purpose) (bool, error) {
	val, err := s.store.Consume(ctx, markerKey(userID, purpose))
	if err != nil {
		return false, err
	}
	return val != "", nil
}

func challengeKey(userID uint, purpose Purpose) string {
	return fmt.Sprintf("stepup:challenge:%d:%s", userID, purpose)
}

func markerKey(userID uint, purpose Purpose) string {
	return fmt.Sprintf("stepup:verified:%d:%s", userID, purpose)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
