package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elnormous/contenttype"
)

var formMediaType = contenttype.NewMediaType("application/x-www-form-urlencoded")

// requestParams returns the parameters carried by req together with a writer
// that stores an updated set back in the same place: the body for
// form-encoded requests, the URL query otherwise.
func requestParams(req *http.Request) (url.Values, func(url.Values), error) {
	if isForm(req) {
		values := url.Values{}
		if req.Body != nil && req.Body != http.NoBody {
			data, err := io.ReadAll(req.Body)
			req.Body.Close()
			if err != nil {
				return nil, nil, fmt.Errorf("read form body: %w", err)
			}
			values, err = url.ParseQuery(string(data))
			if err != nil {
				return nil, nil, fmt.Errorf("parse form body: %w", err)
			}
		}
		return values, func(v url.Values) { setBody(req, v.Encode()) }, nil
	}

	return req.URL.Query(), func(v url.Values) { req.URL.RawQuery = v.Encode() }, nil
}

func isForm(req *http.Request) bool {
	ct := req.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt := contenttype.NewMediaType(ct)
	return mt.Matches(formMediaType)
}

func setBody(req *http.Request, body string) {
	req.Body = io.NopCloser(strings.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
}
