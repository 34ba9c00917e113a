package auth

import (
	"encoding/base64"
	"net/http"
)

const (
	paramAPIKey    = "api_key"
	paramAPISecret = "api_secret"
)

// APIKeyHeader sends the account key and secret as HTTP Basic credentials.
type APIKeyHeader struct {
	key    string
	secret string
}

// NewAPIKeyHeader creates a Basic-auth credential.
func NewAPIKeyHeader(key, secret string) *APIKeyHeader {
	return &APIKeyHeader{key: key, secret: secret}
}

func (a *APIKeyHeader) Kind() Kind     { return KindAPIKeyHeader }
func (a *APIKeyHeader) SortKey() int   { return sortKeyAPIKeyHeader }
func (a *APIKeyHeader) APIKey() string { return a.key }

// AuthorizationHeader returns "Basic base64(key:secret)".
func (a *APIKeyHeader) AuthorizationHeader() (string, error) {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.key+":"+a.secret)), nil
}

// Apply sets the Authorization header.
func (a *APIKeyHeader) Apply(req *http.Request) error {
	value, _ := a.AuthorizationHeader()
	req.Header.Set("Authorization", value)
	return nil
}

// AsQuery returns the same credential in query-parameter form.
func (a *APIKeyHeader) AsQuery() *APIKeyQuery {
	return NewAPIKeyQuery(a.key, a.secret)
}

// Equal reports whether other carries the same key and secret.
func (a *APIKeyHeader) Equal(other Method) bool {
	o, ok := other.(*APIKeyHeader)
	return ok && o != nil && a.key == o.key && a.secret == o.secret
}

// APIKeyQuery sends the account key and secret as api_key and api_secret
// parameters, in the form body for form-encoded requests and in the URL query
// otherwise.
type APIKeyQuery struct {
	key    string
	secret string
}

// NewAPIKeyQuery creates a query-parameter credential.
func NewAPIKeyQuery(key, secret string) *APIKeyQuery {
	return &APIKeyQuery{key: key, secret: secret}
}

func (a *APIKeyQuery) Kind() Kind     { return KindAPIKeyQuery }
func (a *APIKeyQuery) SortKey() int   { return sortKeyAPIKeyQuery }
func (a *APIKeyQuery) APIKey() string { return a.key }

// Apply adds api_key and api_secret to the request parameters.
func (a *APIKeyQuery) Apply(req *http.Request) error {
	values, write, err := requestParams(req)
	if err != nil {
		return err
	}
	values.Set(paramAPIKey, a.key)
	values.Set(paramAPISecret, a.secret)
	write(values)
	return nil
}

// AsHeader returns the same credential in Basic header form.
func (a *APIKeyQuery) AsHeader() *APIKeyHeader {
	return NewAPIKeyHeader(a.key, a.secret)
}

// Equal reports whether other carries the same key and secret.
func (a *APIKeyQuery) Equal(other Method) bool {
	o, ok := other.(*APIKeyQuery)
	return ok && o != nil && a.key == o.key && a.secret == o.secret
}
