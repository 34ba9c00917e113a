package auth

import (
	"fmt"
	"net/http"
)

// Kind identifies an authentication scheme. Endpoints declare the kinds they
// accept and the Collection picks the most preferred configured one.
type Kind int

const (
	KindJWT Kind = iota + 1
	KindSignature
	KindAPIKeyHeader
	KindAPIKeyQuery
)

// Fixed precedence per kind. Lower sorts first and is preferred.
const (
	sortKeyJWT          = 10
	sortKeySignature    = 20
	sortKeyAPIKeyHeader = 30
	sortKeyAPIKeyQuery  = 35
)

func (k Kind) String() string {
	switch k {
	case KindJWT:
		return "JWT"
	case KindSignature:
		return "Signature"
	case KindAPIKeyHeader:
		return "API key (header)"
	case KindAPIKeyQuery:
		return "API key (query params)"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Method attaches one kind of credential to an outgoing request.
// Implementations are immutable and safe for concurrent use.
type Method interface {
	Kind() Kind
	SortKey() int
	// Apply mutates req in place, adding headers or parameters.
	Apply(req *http.Request) error
	// Equal compares credential payloads, not identity.
	Equal(other Method) bool
}

// HeaderAuth is implemented by methods that authenticate through the
// Authorization header.
type HeaderAuth interface {
	Method
	AuthorizationHeader() (string, error)
}

// KeyedAuth is implemented by methods built around an account API key.
type KeyedAuth interface {
	Method
	APIKey() string
}
