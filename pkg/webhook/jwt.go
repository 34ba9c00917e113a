package webhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid webhook token")

// Claims carried by a signed callback token.
type Claims struct {
	jwt.RegisteredClaims
	APIKey        string `json:"api_key,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	// PayloadHash is the hex SHA-256 of the callback body.
	PayloadHash string `json:"payload_hash,omitempty"`
}

// VerifyJWT checks a signed callback. authorization is the raw Authorization
// header value, with or without the Bearer prefix. The token must be HS256
// signed with secret, and when it carries payload_hash the hash must match
// body. All failures wrap ErrInvalidToken.
func VerifyJWT(authorization string, body []byte, secret string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no signature secret configured", ErrInvalidToken)
	}
	tok := strings.TrimSpace(authorization)
	if len(tok) > 7 && strings.EqualFold(tok[:7], "bearer ") {
		tok = strings.TrimSpace(tok[7:])
	}
	if tok == "" {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.PayloadHash != "" {
		sum := sha256.Sum256(body)
		expected := hex.EncodeToString(sum[:])
		if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(claims.PayloadHash))) != 1 {
			return nil, fmt.Errorf("%w: payload hash mismatch", ErrInvalidToken)
		}
	}
	return claims, nil
}
