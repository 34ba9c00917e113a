package webhook

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/alexbotov/commsdk/pkg/signing"
	"github.com/elnormous/contenttype"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds the callback body read for verification.
const MaxBodyBytes = 1 << 20

var formMediaType = contenttype.NewMediaType("application/x-www-form-urlencoded")

type contextKey struct{}

// ClaimsFromContext returns the claims stored by JWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

// readBody buffers the request body and puts an unread copy back on r.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	r.Body.Close()
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// requestParams merges form body values ahead of query values, the same
// precedence as http.Request.Form.
func requestParams(r *http.Request, body []byte) url.Values {
	params := r.URL.Query()
	ct := r.Header.Get("Content-Type")
	if ct == "" || len(body) == 0 {
		return params
	}
	if mt := contenttype.NewMediaType(ct); !mt.Matches(formMediaType) {
		return params
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return params
	}
	for k, vs := range form {
		params[k] = append(vs, params[k]...)
	}
	return params
}

// SignatureMiddleware rejects requests whose sig parameter does not verify
// against v with 401. Parameters are read from the query string, a form body,
// or a JSON object body. The body is left readable for the next handler.
func SignatureMiddleware(v *signing.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readBody(w, r)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}

			var bodyReader io.Reader
			if len(body) > 0 {
				bodyReader = bytes.NewReader(body)
			}
			if err := v.Check(r.Header.Get("Content-Type"), bodyReader, requestParams(r, body)); err != nil {
				log.Warn("rejected signed callback",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				http.Error(w, "invalid signature", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JWTMiddleware verifies signed-token callbacks with VerifyJWT and stores the
// claims on the request context.
func JWTMiddleware(secret string, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := readBody(w, r)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}

			claims, err := VerifyJWT(r.Header.Get("Authorization"), body, secret)
			if err != nil {
				log.Warn("rejected callback token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), contextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
