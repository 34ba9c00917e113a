// Package signing computes and verifies the parameter signatures used by
// signed API requests and signed webhook callbacks.
//
// # Canonical String
//
// A signature covers every parameter except sig. Parameters are joined as
// "&key=value" in iteration order, with any '&' or '=' inside keys and values
// replaced by '_'. A timestamp parameter (seconds since the epoch) is always
// part of the signed set.
//
// # Hash Types
//
// MD5 hashes the canonical string with the secret appended. The HMAC types
// (HMACMD5, HMACSHA1, HMACSHA256, HMACSHA512) use the secret as the MAC key.
// Signatures are lower-case hex.
//
// # Basic Usage
//
//	params := signing.NewParams("to", "447700900000", "text", "hello")
//	signed, err := signing.SignNow(params, secret, signing.HMACSHA256)
//
//	v := &signing.Verifier{Secret: secret, MaxAge: 5 * time.Minute, Hash: signing.HMACSHA256}
//	if !v.Verify(r.Header.Get("Content-Type"), r.Body, r.Form) {
//	    // reject
//	}
//
// Verification never returns an error to the caller; Check exposes the reason
// a request was rejected for logging.
package signing
