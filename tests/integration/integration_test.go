// Package integration provides end-to-end integration tests for the SDK.
// A fake platform authenticates client calls the way the real API does and
// delivers signed callbacks to the webhook receiver.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexbotov/commsdk/internal/api"
	"github.com/alexbotov/commsdk/pkg/auth"
	"github.com/alexbotov/commsdk/pkg/client"
	"github.com/alexbotov/commsdk/pkg/signing"
	"github.com/alexbotov/commsdk/pkg/webhook"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	apiKey          = "integration-key"
	apiSecret       = "integration-secret"
	signatureSecret = "integration-signature-secret"
	applicationID   = "integration-app"
)

// TestServer wraps the fake platform, the webhook receiver and a client
// pointed at the platform.
type TestServer struct {
	Platform *httptest.Server
	Receiver *httptest.Server
	Handler  *api.Handler
	Key      *rsa.PrivateKey

	deliveries sync.WaitGroup

	mu       sync.Mutex
	received []api.InboundSMS
	events   []api.Event
	authUsed []string
}

// NewTestServer starts the platform and receiver.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	ts := &TestServer{Key: key}

	verifier := &signing.Verifier{Secret: signatureSecret, Hash: signing.HMACSHA256}
	ts.Handler = api.New(zap.NewNop(), verifier, signatureSecret)
	ts.Handler.OnInboundSMS = func(_ context.Context, msg api.InboundSMS) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.received = append(ts.received, msg)
	}
	ts.Handler.OnEvent = func(_ context.Context, ev api.Event, _ *webhook.Claims) {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		ts.events = append(ts.events, ev)
	}
	ts.Receiver = httptest.NewServer(ts.Handler.SetupRouter())
	ts.Platform = httptest.NewServer(ts.platformRouter(t))
	return ts
}

// Close waits for pending callbacks, then shuts down both servers
func (ts *TestServer) Close() {
	ts.deliveries.Wait()
	ts.Platform.Close()
	ts.Receiver.Close()
}

func (ts *TestServer) Client(opts ...client.Option) *client.Client {
	return client.NewClient(&client.Config{
		APIBaseURL:  ts.Platform.URL,
		RESTBaseURL: ts.Platform.URL,
		Timeout:     5 * time.Second,
		RetryCount:  1,
	}, opts...)
}

func (ts *TestServer) JWT(t *testing.T) *auth.JWT {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(ts.Key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	j, err := auth.NewJWT(applicationID, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	if err != nil {
		t.Fatalf("NewJWT failed: %v", err)
	}
	return j
}

func (ts *TestServer) recordAuth(kind string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.authUsed = append(ts.authUsed, kind)
}

// authenticate accepts whichever of the allowed schemes the request carries.
func (ts *TestServer) authenticate(r *http.Request, params url.Values, allowed ...string) bool {
	for _, scheme := range allowed {
		switch scheme {
		case "jwt":
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				continue
			}
			_, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(*jwt.Token) (interface{}, error) {
				return &ts.Key.PublicKey, nil
			}, jwt.WithValidMethods([]string{"RS256"}))
			if err == nil {
				ts.recordAuth(scheme)
				return true
			}
		case "signature":
			if params.Get("sig") == "" {
				continue
			}
			v := &signing.Verifier{Secret: signatureSecret, Hash: signing.HMACSHA256}
			if params.Get("api_key") == apiKey && v.Verify("", nil, params) {
				ts.recordAuth(scheme)
				return true
			}
		case "basic":
			if user, pass, ok := r.BasicAuth(); ok && user == apiKey && pass == apiSecret {
				ts.recordAuth(scheme)
				return true
			}
		case "query":
			if params.Get("api_key") == apiKey && params.Get("api_secret") == apiSecret {
				ts.recordAuth(scheme)
				return true
			}
		}
	}
	return false
}

func problem(w http.ResponseWriter, status int, title string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"type":  "https://developer.example.com/api-errors#" + strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		"title": title,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (ts *TestServer) platformRouter(t *testing.T) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/sms/json", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			problem(w, http.StatusBadRequest, "Bad Request")
			return
		}
		if !ts.authenticate(r, r.PostForm, "signature", "query") {
			problem(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, client.SMSResponse{
			MessageCount: "1",
			Messages: []client.SMSMessage{{
				To:        r.PostForm.Get("to"),
				MessageID: "MSG-1",
				Status:    "0",
			}},
		})

		// Echo the message back as an inbound callback, as a loopback number would.
		ts.deliveries.Add(1)
		go ts.deliverInbound(t, r.PostForm.Get("to"), r.PostForm.Get("text"))
	}).Methods("POST")

	r.HandleFunc("/account/get-balance", func(w http.ResponseWriter, r *http.Request) {
		if !ts.authenticate(r, r.URL.Query(), "basic", "query") {
			problem(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, client.BalanceResponse{Value: 42.5})
	}).Methods("GET")

	r.HandleFunc("/ni/basic/json", func(w http.ResponseWriter, r *http.Request) {
		if !ts.authenticate(r, r.URL.Query(), "signature", "basic", "query") {
			problem(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		writeJSON(w, http.StatusOK, client.BasicInsightResponse{
			StatusMessage:             "Success",
			InternationalFormatNumber: r.URL.Query().Get("number"),
			CountryCodeISO3:           "GBR",
		})
	}).Methods("GET")

	r.HandleFunc("/v2/verify", func(w http.ResponseWriter, r *http.Request) {
		if !ts.authenticate(r, nil, "jwt", "basic") {
			problem(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		var req client.VerificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			problem(w, http.StatusUnprocessableEntity, "Invalid params")
			return
		}
		writeJSON(w, http.StatusAccepted, client.VerificationResponse{RequestID: "REQ-1"})
		ts.deliveries.Add(1)
		go ts.deliverEvent(t, `{"status":"verification_started","to":"`+req.Workflow[0].To+`"}`)
	}).Methods("POST")

	return r
}

func (ts *TestServer) deliverInbound(t *testing.T, to, text string) {
	defer ts.deliveries.Done()
	values := url.Values{
		"msisdn":    {to},
		"to":        {"447700900999"},
		"messageId": {"IN-1"},
		"text":      {text},
		"type":      {"text"},
		"api_key":   {apiKey},
	}
	signed, err := signing.SignValues(values, signatureSecret, time.Now().Unix(), signing.HMACSHA256)
	if err != nil {
		t.Errorf("SignValues failed: %v", err)
		return
	}
	resp, err := http.PostForm(ts.Receiver.URL+"/webhooks/inbound-sms", signed)
	if err != nil {
		t.Errorf("Callback delivery failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected callback status 204, got %d", resp.StatusCode)
	}
}

func (ts *TestServer) deliverEvent(t *testing.T, body string) {
	defer ts.deliveries.Done()
	sum := sha256.Sum256([]byte(body))
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &webhook.Claims{
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(time.Now())},
		ApplicationID:    applicationID,
		PayloadHash:      hex.EncodeToString(sum[:]),
	}).SignedString([]byte(signatureSecret))
	if err != nil {
		t.Errorf("Failed to sign event: %v", err)
		return
	}
	req, _ := http.NewRequest(http.MethodPost, ts.Receiver.URL+"/webhooks/events", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Errorf("Event delivery failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected event status 204, got %d", resp.StatusCode)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func (ts *TestServer) lastAuth() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.authUsed) == 0 {
		return ""
	}
	return ts.authUsed[len(ts.authUsed)-1]
}

func TestSMSRoundTrip(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	c := ts.Client(
		client.WithAPIKey(apiKey, apiSecret),
		client.WithSignatureSecret(apiKey, signatureSecret, signing.HMACSHA256),
	)

	resp, err := c.SendSMS(context.Background(), &client.SMSRequest{
		From: "Acme",
		To:   "+447700900000",
		Text: "Hello & welcome = ok",
	})
	if err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if resp.Messages[0].MessageID != "MSG-1" {
		t.Errorf("Unexpected message id %s", resp.Messages[0].MessageID)
	}
	if got := ts.lastAuth(); got != "signature" {
		t.Errorf("Expected signature auth, got %s", got)
	}

	waitFor(t, "inbound callback", func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return len(ts.received) == 1
	})
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.received[0].Text != "Hello & welcome = ok" {
		t.Errorf("Unexpected inbound text %q", ts.received[0].Text)
	}
}

func TestAuthSelectionPerEndpoint(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	c := ts.Client(
		client.WithAPIKey(apiKey, apiSecret),
		client.WithSignatureSecret(apiKey, signatureSecret, signing.HMACSHA256),
		client.WithAuthMethod(ts.JWT(t)),
	)
	ctx := context.Background()

	if _, err := c.GetBalance(ctx); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if got := ts.lastAuth(); got != "basic" {
		t.Errorf("GetBalance: expected basic auth, got %s", got)
	}

	if _, err := c.BasicInsight(ctx, "+447700900000", ""); err != nil {
		t.Fatalf("BasicInsight failed: %v", err)
	}
	if got := ts.lastAuth(); got != "signature" {
		t.Errorf("BasicInsight: expected signature auth, got %s", got)
	}

	v, err := c.StartVerification(ctx, &client.VerificationRequest{
		Brand:    "Acme",
		Workflow: []client.WorkflowStep{{Channel: client.ChannelSMS, To: "+447700900000"}},
	})
	if err != nil {
		t.Fatalf("StartVerification failed: %v", err)
	}
	if v.RequestID != "REQ-1" {
		t.Errorf("Unexpected request id %s", v.RequestID)
	}
	if got := ts.lastAuth(); got != "jwt" {
		t.Errorf("StartVerification: expected jwt auth, got %s", got)
	}

	waitFor(t, "event callback", func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return len(ts.events) == 1
	})
}

func TestQueryCredentialsOnly(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	c := ts.Client(client.WithAuthMethod(auth.NewAPIKeyQuery(apiKey, apiSecret)))
	ctx := context.Background()

	if _, err := c.GetBalance(ctx); err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if _, err := c.SendSMS(ctx, &client.SMSRequest{From: "Acme", To: "447700900000", Text: "hi"}); err != nil {
		t.Fatalf("SendSMS failed: %v", err)
	}
	if got := ts.lastAuth(); got != "query" {
		t.Errorf("Expected query auth, got %s", got)
	}

	_, err := c.StartVerification(ctx, &client.VerificationRequest{
		Brand:    "Acme",
		Workflow: []client.WorkflowStep{{Channel: client.ChannelSMS, To: "447700900000"}},
	})
	if !errors.Is(err, auth.ErrNoAcceptableMethod) {
		t.Errorf("Expected ErrNoAcceptableMethod, got %v", err)
	}

	waitFor(t, "inbound callback", func() bool {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return len(ts.received) == 1
	})
}

func TestWrongCredentials(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	c := ts.Client(client.WithAPIKey(apiKey, "wrong"))
	_, err := c.GetBalance(context.Background())

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *client.APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Title != "Unauthorized" {
		t.Errorf("Unexpected error %+v", apiErr)
	}

	// Rotating to the right secret recovers without rebuilding the client.
	c.UpdateAuth(auth.NewAPIKeyHeader(apiKey, apiSecret))
	if _, err := c.GetBalance(context.Background()); err != nil {
		t.Errorf("GetBalance after rotation failed: %v", err)
	}
}

func TestReceiverRejectsForgedCallback(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	signed, err := signing.SignValues(url.Values{"msisdn": {"447700900001"}, "text": {"hi"}}, "not-the-secret", time.Now().Unix(), signing.HMACSHA256)
	if err != nil {
		t.Fatalf("SignValues failed: %v", err)
	}
	resp, err := http.PostForm(ts.Receiver.URL+"/webhooks/inbound-sms", signed)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.received) != 0 {
		t.Errorf("Expected no callbacks, got %d", len(ts.received))
	}
}
