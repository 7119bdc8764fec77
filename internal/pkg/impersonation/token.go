package impersonation

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an impersonation bearer token. The token only
// references the server-side session row; the row stays authoritative for
// revocation and expiry.
type Claims struct {
	SessionID    string `json:"sid"`
	ActingUserID uint   `json:"act"`
	TargetUserID uint   `json:"tgt"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid impersonation token")

// MintToken signs a bearer token for the session.
func MintToken(secret string, sessionID string, actingUserID, targetUserID uint, expiresAt time.Time) (string, error) {
	claims := Claims{
		SessionID:    sessionID,
		ActingUserID: actingUserID,
		TargetUserID: targetUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(secret string, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
