// Package client provides a client for the communications platform REST APIs.
//
// Each operation declares which authentication kinds its endpoint accepts.
// The client picks the most preferred credential it was configured with,
// applies it to a freshly built request and decodes the JSON response.
//
// # Authentication
//
// Credentials are registered with options and may be combined:
//   - WithAPIKey: HTTP Basic header, or api_key/api_secret parameters where
//     the endpoint only accepts those
//   - WithSignatureSecret: api_key, timestamp and sig parameters, so the API
//     secret never leaves the process
//   - WithAuthMethod(jwt): RS256 application tokens minted per request
//
// # Basic Usage
//
//	jwtAuth, err := auth.NewJWT(appID, privateKeyPEM)
//	if err != nil {
//	    return err
//	}
//	c := client.NewClient(client.DefaultConfig(),
//	    client.WithAPIKey("key", "secret"),
//	    client.WithSignatureSecret("key", "sig-secret", signing.HMACSHA256),
//	    client.WithAuthMethod(jwtAuth),
//	)
//
//	// Signed form request
//	sms, err := c.SendSMS(ctx, &client.SMSRequest{
//	    From: "Acme",
//	    To:   "+447700900000",
//	    Text: "Your order has shipped",
//	})
//
//	// Bearer token request
//	v, err := c.StartVerification(ctx, &client.VerificationRequest{
//	    Brand:    "Acme",
//	    Workflow: []client.WorkflowStep{{Channel: client.ChannelSMS, To: "447700900000"}},
//	})
//
// # Error Handling
//
// A client lacking any credential the endpoint accepts fails before sending
// with an error matching auth.ErrNoAcceptableMethod. Input checks wrap
// ErrValidation. Platform failures are returned as *APIError:
//
//	_, err := c.GetBalance(ctx)
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
//	    // rotate credentials with c.UpdateAuth
//	}
package client
