package signing

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	ParamSignature = "sig"
	ParamTimestamp = "timestamp"
	ParamAPIKey    = "api_key"
)

var cleaner = strings.NewReplacer("&", "_", "=", "_")

// Sign returns a copy of params carrying a timestamp and the computed sig.
// Any sig already present is ignored. The canonical string is built in the
// iteration order of params, so callers that need signatures to match
// another implementation must supply keys in the same order.
func Sign(params *Params, secret string, timestamp int64, h HashType) (*Params, error) {
	out := params.Clone()
	out.Del(ParamSignature)
	out.Set(ParamTimestamp, strconv.FormatInt(timestamp, 10))

	sig, err := Calculate(canonical(out), secret, "", h)
	if err != nil {
		return nil, err
	}
	out.Set(ParamSignature, sig)
	return out, nil
}

// SignNow is Sign at the current wall-clock time.
func SignNow(params *Params, secret string, h HashType) (*Params, error) {
	return Sign(params, secret, time.Now().Unix(), h)
}

// SignValues signs form or query parameters in sorted key order, the order a
// Verifier reconstructs from url.Values. Only the first value of each key is
// kept.
func SignValues(values url.Values, secret string, timestamp int64, h HashType) (url.Values, error) {
	in := make(url.Values, len(values)+1)
	for k, vs := range values {
		if k == ParamSignature {
			continue
		}
		in[k] = vs
	}
	in.Set(ParamTimestamp, strconv.FormatInt(timestamp, 10))

	signed, err := Sign(ParamsFromValues(in), secret, timestamp, h)
	if err != nil {
		return nil, err
	}
	return signed.Values(), nil
}

// canonical concatenates &key=value for every param except sig.
func canonical(params *Params) string {
	var sb strings.Builder
	for pair := params.oldest(); pair != nil; pair = pair.Next() {
		if pair.Key == ParamSignature {
			continue
		}
		sb.WriteByte('&')
		sb.WriteString(cleaner.Replace(pair.Key))
		sb.WriteByte('=')
		sb.WriteString(cleaner.Replace(pair.Value))
	}
	return sb.String()
}
