package signing

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/elnormous/contenttype"
)

// Reasons a signed request is rejected. Verify folds all of them into false.
var (
	ErrMissingSignature  = errors.New("missing sig parameter")
	ErrMissingTimestamp  = errors.New("missing timestamp parameter")
	ErrInvalidTimestamp  = errors.New("timestamp is not an integer")
	ErrStaleTimestamp    = errors.New("timestamp outside allowed window")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrMalformedBody     = errors.New("malformed json body")
	ErrNegativeMaxAge    = errors.New("negative max age")
)

// DefaultMaxAge is the freshness window applied when Verifier.MaxAge is zero.
// A negative MaxAge rejects every request.
const DefaultMaxAge = 5 * time.Minute

var jsonMediaType = contenttype.NewMediaType("application/json")

// Verifier checks inbound signed requests against a shared secret.
type Verifier struct {
	Secret string
	// MaxAge bounds how old a timestamp may be. Zero means DefaultMaxAge.
	MaxAge time.Duration
	Hash   HashType
	// Now defaults to time.Now.
	Now func() time.Time
}

// Verify reports whether the request parameters carry a valid, fresh
// signature. It never panics and never returns an error; see Check for the
// rejection reason.
func (v *Verifier) Verify(contentType string, body io.Reader, params url.Values) bool {
	return v.Check(contentType, body, params) == nil
}

// Check is Verify with the reason for rejection. When contentType is JSON and
// body is non-nil the parameters are read from the JSON object and params is
// ignored.
func (v *Verifier) Check(contentType string, body io.Reader, params url.Values) error {
	var p *Params
	if body != nil && isJSON(contentType) {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		p, err = paramsFromJSON(data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
	} else {
		p = ParamsFromValues(params)
	}
	return v.checkParams(p)
}

// VerifyParams checks already-extracted parameters.
func (v *Verifier) VerifyParams(p *Params) bool {
	return v.checkParams(p) == nil
}

func (v *Verifier) checkParams(p *Params) error {
	if v.MaxAge < 0 {
		return ErrNegativeMaxAge
	}
	sig, ok := p.Get(ParamSignature)
	if !ok || sig == "" {
		return ErrMissingSignature
	}
	raw, ok := p.Get(ParamTimestamp)
	if !ok || raw == "" {
		return ErrMissingTimestamp
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}

	// Only stale timestamps are rejected; a timestamp ahead of the local
	// clock passes. Sub saturates, so extreme values cannot wrap into the
	// window.
	now := v.now().Truncate(time.Millisecond)
	if now.Sub(time.Unix(ts, 0)) > v.maxAge() {
		return ErrStaleTimestamp
	}

	expected, err := Calculate(canonical(p), v.Secret, "", v.Hash)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *Verifier) maxAge() time.Duration {
	if v.MaxAge == 0 {
		return DefaultMaxAge
	}
	return v.MaxAge
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt := contenttype.NewMediaType(contentType)
	return mt.Matches(jsonMediaType)
}

// VerifyRequest verifies with a one-off Verifier at the current time.
func VerifyRequest(contentType string, body io.Reader, params url.Values, secret string, maxAge time.Duration, h HashType) bool {
	v := &Verifier{Secret: secret, MaxAge: maxAge, Hash: h}
	return v.Verify(contentType, body, params)
}
