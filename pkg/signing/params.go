package signing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Params is an insertion-ordered set of string parameters. The canonical
// string used for signing follows its iteration order.
type Params struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewParams returns an empty Params. Optional key/value pairs are added in order;
// a trailing key without a value is stored with an empty value.
func NewParams(kv ...string) *Params {
	p := &Params{m: orderedmap.New[string, string]()}
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		p.Set(kv[i], v)
	}
	return p
}

// ParamsFromValues builds Params from url.Values in sorted key order, keeping
// the first value of each key. Keys with no values map to "".
func ParamsFromValues(values url.Values) *Params {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewParams()
	for _, k := range keys {
		v := ""
		if vs := values[k]; len(vs) > 0 {
			v = vs[0]
		}
		p.Set(k, v)
	}
	return p
}

var errNestedValue = errors.New("nested values cannot be signed")

// paramsFromJSON reads a flat JSON object, preserving key order. Strings are
// unquoted, other scalars keep their literal text and null becomes "".
func paramsFromJSON(data []byte) (*Params, error) {
	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, fmt.Errorf("decode json params: %w", err)
	}

	p := NewParams()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		v := bytes.TrimSpace(pair.Value)
		switch {
		case len(v) == 0 || bytes.Equal(v, []byte("null")):
			p.Set(pair.Key, "")
		case v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, fmt.Errorf("decode json param %q: %w", pair.Key, err)
			}
			p.Set(pair.Key, s)
		case v[0] == '{' || v[0] == '[':
			return nil, fmt.Errorf("%w: %q", errNestedValue, pair.Key)
		default:
			p.Set(pair.Key, string(v))
		}
	}
	return p, nil
}

// Set inserts or overwrites key. Overwriting keeps the original position.
// The zero Params is ready to use.
func (p *Params) Set(key, value string) {
	if p.m == nil {
		p.m = orderedmap.New[string, string]()
	}
	p.m.Set(key, value)
}

// Get returns the value stored for key. A nil Params holds nothing.
func (p *Params) Get(key string) (string, bool) {
	if p == nil || p.m == nil {
		return "", false
	}
	return p.m.Get(key)
}

// Del removes key if present.
func (p *Params) Del(key string) {
	if p == nil || p.m == nil {
		return
	}
	p.m.Delete(key)
}

// Len returns the number of keys.
func (p *Params) Len() int {
	if p == nil || p.m == nil {
		return 0
	}
	return p.m.Len()
}

func (p *Params) oldest() *orderedmap.Pair[string, string] {
	if p == nil || p.m == nil {
		return nil
	}
	return p.m.Oldest()
}

// Keys returns the keys in iteration order.
func (p *Params) Keys() []string {
	keys := make([]string, 0, p.Len())
	for pair := p.oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns an independent copy with the same order.
func (p *Params) Clone() *Params {
	c := NewParams()
	for pair := p.oldest(); pair != nil; pair = pair.Next() {
		c.Set(pair.Key, pair.Value)
	}
	return c
}

// Values converts the params to url.Values, one value per key.
func (p *Params) Values() url.Values {
	values := make(url.Values, p.Len())
	for pair := p.oldest(); pair != nil; pair = pair.Next() {
		values.Set(pair.Key, pair.Value)
	}
	return values
}

// MarshalJSON encodes the params as a JSON object in iteration order.
func (p *Params) MarshalJSON() ([]byte, error) {
	if p == nil || p.m == nil {
		return []byte("{}"), nil
	}
	return p.m.MarshalJSON()
}

// UnmarshalJSON reads a flat JSON object, keeping its key order.
func (p *Params) UnmarshalJSON(data []byte) error {
	parsed, err := paramsFromJSON(data)
	if err != nil {
		return err
	}
	p.m = parsed.m
	return nil
}
