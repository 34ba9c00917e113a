// Package webhook authenticates inbound platform callbacks.
//
// Two schemes are in use. Older callbacks such as inbound SMS carry api_key,
// timestamp and sig parameters produced with the account signature secret;
// SignatureMiddleware checks them with a signing.Verifier. Newer callbacks
// carry an HS256 bearer token signed with the same secret, optionally
// binding the body through a payload_hash claim; JWTMiddleware checks those.
//
//	r := mux.NewRouter()
//	v := &signing.Verifier{Secret: secret, Hash: signing.HMACSHA256}
//	r.Handle("/webhooks/inbound-sms", webhook.SignatureMiddleware(v, log)(smsHandler))
//	r.Handle("/webhooks/events", webhook.JWTMiddleware(secret, log)(eventHandler))
package webhook
