package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/alexbotov/commsdk/pkg/signing"
)

// Signature signs the request parameters with the account signature secret
// instead of sending the API secret.
type Signature struct {
	apiKey string
	secret string
	hash   signing.HashType
	now    func() time.Time
}

// NewSignature creates a signing credential using hash.
func NewSignature(apiKey, secret string, hash signing.HashType) *Signature {
	return &Signature{apiKey: apiKey, secret: secret, hash: hash, now: time.Now}
}

func (s *Signature) Kind() Kind             { return KindSignature }
func (s *Signature) SortKey() int           { return sortKeySignature }
func (s *Signature) APIKey() string         { return s.apiKey }
func (s *Signature) Hash() signing.HashType { return s.hash }

// Apply adds api_key, timestamp and sig to the request parameters. For
// form-encoded requests the signature covers the body and the URL query
// together, body values first, which is how receivers merge them.
func (s *Signature) Apply(req *http.Request) error {
	values, write, err := requestParams(req)
	if err != nil {
		return err
	}
	values.Set(signing.ParamAPIKey, s.apiKey)

	signed, err := signing.SignValues(signedSet(req, values), s.secret, s.now().Unix(), s.hash)
	if err != nil {
		return err
	}
	values.Set(signing.ParamTimestamp, signed.Get(signing.ParamTimestamp))
	values.Set(signing.ParamSignature, signed.Get(signing.ParamSignature))
	write(values)
	return nil
}

// signedSet returns the parameters a receiver sees: values alone for query
// requests, form values followed by query values for form requests.
func signedSet(req *http.Request, values url.Values) url.Values {
	if !isForm(req) || req.URL.RawQuery == "" {
		return values
	}
	merged := make(url.Values, len(values))
	for k, vs := range values {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range req.URL.Query() {
		merged[k] = append(merged[k], vs...)
	}
	return merged
}

// Equal reports whether other signs with the same key, secret and hash.
func (s *Signature) Equal(other Method) bool {
	o, ok := other.(*Signature)
	return ok && o != nil && s.apiKey == o.apiKey && s.secret == o.secret && s.hash == o.hash
}
