package auth

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrMissingApplicationID = errors.New("application id is required")

// JWT authenticates as an application with a fresh RS256 bearer token per
// request.
type JWT struct {
	applicationID string
	key           *rsa.PrivateKey
	ttl           time.Duration
	subject       string
	acl           map[string]any
	now           func() time.Time
}

// JWTOption configures optional token claims.
type JWTOption func(*JWT)

// WithTokenTTL adds exp = iat+ttl and nbf = iat to every token.
func WithTokenTTL(ttl time.Duration) JWTOption {
	return func(j *JWT) { j.ttl = ttl }
}

// WithSubject sets the sub claim, used to act on behalf of a user.
func WithSubject(sub string) JWTOption {
	return func(j *JWT) { j.subject = sub }
}

// WithACL restricts the token to the given access control paths.
func WithACL(acl map[string]any) JWTOption {
	return func(j *JWT) { j.acl = acl }
}

// WithClock overrides the time source used for iat.
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWT) { j.now = now }
}

// NewJWT parses privateKey, which may be PEM text or PKCS#8 DER bytes.
// A malformed key fails here with a *KeyFormatError.
func NewJWT(applicationID string, privateKey []byte, opts ...JWTOption) (*JWT, error) {
	if applicationID == "" {
		return nil, ErrMissingApplicationID
	}
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	j := &JWT{
		applicationID: applicationID,
		key:           key,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

func (j *JWT) Kind() Kind                { return KindJWT }
func (j *JWT) SortKey() int              { return sortKeyJWT }
func (j *JWT) ApplicationID() string     { return j.applicationID }
func (j *JWT) PublicKey() *rsa.PublicKey { return &j.key.PublicKey }

// Token mints a new signed token. Every call gets a new jti.
func (j *JWT) Token() (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"iat":            now.Unix(),
		"application_id": j.applicationID,
		"jti":            uuid.NewString(),
	}
	if j.ttl > 0 {
		claims["nbf"] = now.Unix()
		claims["exp"] = now.Add(j.ttl).Unix()
	}
	if j.subject != "" {
		claims["sub"] = j.subject
	}
	if j.acl != nil {
		claims["acl"] = j.acl
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(j.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// AuthorizationHeader mints a fresh token and returns "Bearer <token>".
func (j *JWT) AuthorizationHeader() (string, error) {
	tok, err := j.Token()
	if err != nil {
		return "", err
	}
	return "Bearer " + tok, nil
}

// Apply sets the Authorization header with a newly minted token.
func (j *JWT) Apply(req *http.Request) error {
	value, err := j.AuthorizationHeader()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", value)
	return nil
}

// Equal compares the application ID and private key.
func (j *JWT) Equal(other Method) bool {
	o, ok := other.(*JWT)
	return ok && o != nil && j.applicationID == o.applicationID && j.key.Equal(o.key)
}

var pemPrefix = []byte("-----BEGIN")

func looksLikePEM(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(data), pemPrefix)
}

func parsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	if looksLikePEM(data) {
		key, err := jwt.ParseRSAPrivateKeyFromPEM(bytes.TrimSpace(data))
		if err != nil {
			return nil, &KeyFormatError{Format: "PEM", Err: err}
		}
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(data)
	if err != nil {
		return nil, &KeyFormatError{Format: "PKCS#8 DER", Err: err}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyFormatError{Format: "PKCS#8 DER", Err: fmt.Errorf("unsupported key type %T", parsed)}
	}
	return key, nil
}
