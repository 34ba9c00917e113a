// Package auth selects and applies the credential used for each API call.
//
// A client is configured with one or more Methods. Each endpoint declares the
// Kinds it accepts, and the Collection returns the most preferred configured
// method among them. Preference is fixed per kind:
//
//  1. KindJWT: RS256 bearer token minted from an application id and private key
//  2. KindSignature: api_key, timestamp and sig parameters signed with the signature secret
//  3. KindAPIKeyHeader: Authorization: Basic base64(key:secret)
//  4. KindAPIKeyQuery: api_key and api_secret parameters
//
// # Basic Usage
//
//	jwtAuth, err := auth.NewJWT(appID, pemBytes)
//	if err != nil {
//	    // *auth.KeyFormatError for malformed keys
//	}
//	methods := auth.NewCollection(
//	    auth.NewAPIKeyHeader(key, secret),
//	    jwtAuth,
//	)
//
//	m, err := methods.Acceptable(auth.KindJWT, auth.KindAPIKeyHeader)
//	if errors.Is(err, auth.ErrNoAcceptableMethod) {
//	    // the client lacks a credential this endpoint accepts
//	}
//	err = m.Apply(req)
//
// Adding a method of a kind already present replaces it, which allows
// credentials to be rotated on a live client.
package auth
