package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func pkcs8DER(t *testing.T) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(rsaKey(t))
	require.NoError(t, err)
	return der
}

func pkcs8PEM(t *testing.T) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8DER(t)})
}

func testJWT(t *testing.T, opts ...JWTOption) *JWT {
	t.Helper()
	j, err := NewJWT("app-123", pkcs8PEM(t), opts...)
	require.NoError(t, err)
	return j
}

// verifyToken checks the RS256 signature independently of the signing library
// and returns the decoded claims.
func verifyToken(t *testing.T, token string, pub *rsa.PublicKey) map[string]any {
	t.Helper()
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	require.Len(t, jws.Signatures, 1)
	assert.Equal(t, "RS256", jws.Signatures[0].Header.Algorithm)

	payload, err := jws.Verify(pub)
	require.NoError(t, err)

	var claims map[string]any
	require.NoError(t, json.Unmarshal(payload, &claims))
	return claims
}

func TestNewJWT_KeyFormats(t *testing.T) {
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(rsaKey(t))})

	tests := []struct {
		name string
		key  []byte
	}{
		{"pkcs8 pem", pkcs8PEM(t)},
		{"pkcs8 pem with surrounding whitespace", append(append([]byte("\n  "), pkcs8PEM(t)...), '\n')},
		{"pkcs1 pem", pkcs1},
		{"pkcs8 der", pkcs8DER(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewJWT("app-123", tt.key)
			require.NoError(t, err)
			assert.True(t, j.PublicKey().Equal(&rsaKey(t).PublicKey))
		})
	}
}

func TestNewJWT_MalformedKeys(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)

	truncated := strings.Split(string(pkcs8PEM(t)), "-----END")[0]

	tests := []struct {
		name   string
		key    []byte
		format string
	}{
		{"pem missing footer", []byte(truncated), "PEM"},
		{"garbage der", []byte{0x30, 0x01, 0x02}, "PKCS#8 DER"},
		{"empty", nil, "PKCS#8 DER"},
		{"non rsa key", ecDER, "PKCS#8 DER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJWT("app-123", tt.key)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPrivateKey))

			var kfe *KeyFormatError
			require.True(t, errors.As(err, &kfe))
			assert.Equal(t, tt.format, kfe.Format)
		})
	}
}

func TestNewJWT_RequiresApplicationID(t *testing.T) {
	_, err := NewJWT("", pkcs8PEM(t))
	assert.ErrorIs(t, err, ErrMissingApplicationID)
}

func TestJWT_TokenClaims(t *testing.T) {
	now := time.Unix(1700000000, 0)
	j := testJWT(t, WithClock(func() time.Time { return now }))

	tok, err := j.Token()
	require.NoError(t, err)

	claims := verifyToken(t, tok, j.PublicKey())
	assert.Equal(t, "app-123", claims["application_id"])
	assert.Equal(t, float64(1700000000), claims["iat"])
	assert.NotEmpty(t, claims["jti"])
	assert.NotContains(t, claims, "exp")
	assert.NotContains(t, claims, "sub")
}

func TestJWT_OptionalClaims(t *testing.T) {
	now := time.Unix(1700000000, 0)
	acl := map[string]any{"paths": map[string]any{"/*/users/**": map[string]any{}}}
	j := testJWT(t,
		WithClock(func() time.Time { return now }),
		WithTokenTTL(15*time.Minute),
		WithSubject("alice"),
		WithACL(acl),
	)

	tok, err := j.Token()
	require.NoError(t, err)

	claims := verifyToken(t, tok, j.PublicKey())
	assert.Equal(t, float64(1700000000), claims["nbf"])
	assert.Equal(t, float64(1700000900), claims["exp"])
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, acl, claims["acl"])
}

func TestJWT_TokensAreUnique(t *testing.T) {
	j := testJWT(t)

	first, err := j.Token()
	require.NoError(t, err)
	second, err := j.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	c1 := verifyToken(t, first, j.PublicKey())
	c2 := verifyToken(t, second, j.PublicKey())
	assert.NotEqual(t, c1["jti"], c2["jti"])
}

func TestJWT_Apply(t *testing.T) {
	j := testJWT(t)
	req, err := http.NewRequest(http.MethodPost, "https://api.example.com/v2/verify", nil)
	require.NoError(t, err)

	require.NoError(t, j.Apply(req))
	header := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	verifyToken(t, strings.TrimPrefix(header, "Bearer "), j.PublicKey())
}

func TestJWT_Equal(t *testing.T) {
	j := testJWT(t)

	fromDER, err := NewJWT("app-123", pkcs8DER(t))
	require.NoError(t, err)
	assert.True(t, j.Equal(fromDER))

	otherApp, err := NewJWT("app-456", pkcs8DER(t))
	require.NoError(t, err)
	assert.False(t, j.Equal(otherApp))
	assert.False(t, j.Equal(NewAPIKeyHeader("key", "secret")))
}
