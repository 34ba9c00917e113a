package signing

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	ErrUnsupportedHash = errors.New("unsupported hash type")
	ErrUnknownEncoding = errors.New("unknown character encoding")
	ErrSecretRequired  = errors.New("hash type requires a secret")
)

// HashType selects the digest or MAC used to sign parameters.
// The zero value is MD5, the platform default for signed requests.
type HashType int

const (
	MD5 HashType = iota
	HMACMD5
	HMACSHA1
	HMACSHA256
	HMACSHA512
)

var hashNames = map[HashType]string{
	MD5:        "md5hash",
	HMACMD5:    "md5",
	HMACSHA1:   "sha1",
	HMACSHA256: "sha256",
	HMACSHA512: "sha512",
}

// String returns the name the platform dashboard uses for the hash type.
func (h HashType) String() string {
	if name, ok := hashNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HashType(%d)", int(h))
}

// Keyed reports whether the secret is used as a MAC key rather than
// appended to the input.
func (h HashType) Keyed() bool {
	return h != MD5
}

func (h HashType) newHash() (func() hash.Hash, error) {
	switch h {
	case MD5, HMACMD5:
		return md5.New, nil
	case HMACSHA1:
		return sha1.New, nil
	case HMACSHA256:
		return sha256.New, nil
	case HMACSHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, h)
}

// ParseHashType maps a configured name to a HashType. Both the dashboard
// names (md5hash, md5, sha1, sha256, sha512) and the constant names
// (hmac_sha256, ...) are accepted, case-insensitively.
func ParseHashType(s string) (HashType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md5hash", "":
		return MD5, nil
	case "md5", "hmac_md5", "hmacmd5", "hmac-md5":
		return HMACMD5, nil
	case "sha1", "hmac_sha1", "hmacsha1", "hmac-sha1":
		return HMACSHA1, nil
	case "sha256", "hmac_sha256", "hmacsha256", "hmac-sha256":
		return HMACSHA256, nil
	case "sha512", "hmac_sha512", "hmacsha512", "hmac-sha512":
		return HMACSHA512, nil
	}
	return MD5, fmt.Errorf("%w: %q", ErrUnsupportedHash, s)
}

// Calculate digests input with the selected hash type and returns lower-case hex.
// MD5 hashes input+secret; the HMAC variants key the MAC with secret, which
// must then be non-empty. The input is converted to the named character
// encoding before hashing; an empty encoding means UTF-8.
func Calculate(input, secret, encoding string, h HashType) (string, error) {
	newHash, err := h.newHash()
	if err != nil {
		return "", err
	}
	if h.Keyed() && secret == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretRequired, h)
	}

	data, err := encode(input, encoding)
	if err != nil {
		return "", err
	}

	var mac hash.Hash
	if h.Keyed() {
		key, err := encode(secret, encoding)
		if err != nil {
			return "", err
		}
		mac = hmac.New(newHash, key)
		mac.Write(data)
	} else {
		tail, err := encode(secret, encoding)
		if err != nil {
			return "", err
		}
		mac = newHash()
		mac.Write(data)
		mac.Write(tail)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func encode(s, encoding string) ([]byte, error) {
	if encoding == "" || strings.EqualFold(encoding, "utf-8") || strings.EqualFold(encoding, "utf8") {
		return []byte(s), nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
	out, err := enc.NewEncoder().String(s)
	if err != nil {
		return nil, fmt.Errorf("encode as %s: %w", encoding, err)
	}
	return []byte(out), nil
}
