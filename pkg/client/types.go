package client

import (
	"errors"
	"fmt"
	"time"
)

// Default API hosts.
const (
	DefaultAPIBaseURL  = "https://api.nexmo.com"
	DefaultRESTBaseURL = "https://rest.nexmo.com"
	DefaultUserAgent   = "commsdk-go"
)

// ErrValidation is wrapped by every request builder check that fails before
// anything is sent.
var ErrValidation = errors.New("invalid request")

// APIError represents an error response from the API. HTTP failures carry an
// RFC 7807 problem body; SMS and Number Insight report failures with a
// non-zero status code in an otherwise successful response.
type APIError struct {
	Status   int    `json:"-"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		if msg != "" {
			msg += ": "
		}
		msg += e.Detail
	}
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != "" {
		return fmt.Sprintf("api error (status %d, code %s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, msg)
}

// SMS message classes.
const (
	SMSTypeText    = "text"
	SMSTypeUnicode = "unicode"
	SMSTypeBinary  = "binary"
)

// SMSRequest is the form body for /sms/json
type SMSRequest struct {
	From string
	To   string
	Text string
	// Type is one of SMSTypeText, SMSTypeUnicode or SMSTypeBinary. Empty means text.
	Type            string
	ClientRef       string
	StatusReportReq bool
	Callback        string
	TTL             time.Duration
}

// SMSResponse is the result of submitting an SMS. Long messages are split
// into several parts, each reported separately.
type SMSResponse struct {
	MessageCount string       `json:"message-count"`
	Messages     []SMSMessage `json:"messages"`
}

// SMSMessage reports one submitted part. Status "0" means accepted.
type SMSMessage struct {
	To               string `json:"to"`
	MessageID        string `json:"message-id"`
	Status           string `json:"status"`
	ErrorText        string `json:"error-text,omitempty"`
	RemainingBalance string `json:"remaining-balance"`
	MessagePrice     string `json:"message-price"`
	Network          string `json:"network"`
	ClientRef        string `json:"client-ref,omitempty"`
}

// BalanceResponse is the result of /account/get-balance
type BalanceResponse struct {
	Value      float64 `json:"value"`
	AutoReload bool    `json:"autoReload"`
}

// BasicInsightResponse is the result of a basic Number Insight lookup.
type BasicInsightResponse struct {
	Status                    int    `json:"status"`
	StatusMessage             string `json:"status_message"`
	RequestID                 string `json:"request_id"`
	InternationalFormatNumber string `json:"international_format_number"`
	NationalFormatNumber      string `json:"national_format_number"`
	CountryCode               string `json:"country_code"`
	CountryCodeISO3           string `json:"country_code_iso3"`
	CountryName               string `json:"country_name"`
	CountryPrefix             string `json:"country_prefix"`
}

// Verification channels.
const (
	ChannelSMS      = "sms"
	ChannelVoice    = "voice"
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// WorkflowStep is one delivery attempt in a verification workflow.
type WorkflowStep struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
}

// VerificationRequest is the request body for /v2/verify
type VerificationRequest struct {
	Brand          string         `json:"brand"`
	Workflow       []WorkflowStep `json:"workflow"`
	Locale         string         `json:"locale,omitempty"`
	ChannelTimeout int            `json:"channel_timeout,omitempty"`
	CodeLength     int            `json:"code_length,omitempty"`
	ClientRef      string         `json:"client_ref,omitempty"`
}

// VerificationResponse is the result of starting a verification.
type VerificationResponse struct {
	RequestID string `json:"request_id"`
	CheckURL  string `json:"check_url,omitempty"`
}

// Config holds the configuration for the client
type Config struct {
	APIBaseURL  string
	RESTBaseURL string
	Timeout     time.Duration
	RetryCount  int
	UserAgent   string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:  DefaultAPIBaseURL,
		RESTBaseURL: DefaultRESTBaseURL,
		Timeout:     30 * time.Second,
		RetryCount:  3,
		UserAgent:   DefaultUserAgent,
	}
}
