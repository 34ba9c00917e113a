package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/alexbotov/commsdk/pkg/auth"
)

var (
	sendSMSEndpoint = endpoint{
		method:   http.MethodPost,
		host:     hostREST,
		path:     "/sms/json",
		accepts:  []auth.Kind{auth.KindSignature, auth.KindAPIKeyQuery},
		encoding: encodeForm,
	}
	getBalanceEndpoint = endpoint{
		method:   http.MethodGet,
		host:     hostREST,
		path:     "/account/get-balance",
		accepts:  []auth.Kind{auth.KindAPIKeyHeader, auth.KindAPIKeyQuery},
		encoding: encodeQuery,
	}
	basicInsightEndpoint = endpoint{
		method:   http.MethodGet,
		host:     hostAPI,
		path:     "/ni/basic/json",
		accepts:  []auth.Kind{auth.KindSignature, auth.KindAPIKeyHeader, auth.KindAPIKeyQuery},
		encoding: encodeQuery,
	}
	startVerificationEndpoint = endpoint{
		method:   http.MethodPost,
		host:     hostAPI,
		path:     "/v2/verify",
		accepts:  []auth.Kind{auth.KindJWT, auth.KindAPIKeyHeader},
		encoding: encodeJSON,
	}
)

var e164 = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// normalizeNumber validates an E.164 number and strips the leading plus.
func normalizeNumber(field, number string) (string, error) {
	number = strings.TrimSpace(number)
	if !e164.MatchString(number) {
		return "", fmt.Errorf("%w: %s %q is not an E.164 number", ErrValidation, field, number)
	}
	return strings.TrimPrefix(number, "+"), nil
}

// SendSMS submits a text message. A part rejected by the platform is
// reported as an *APIError carrying the per-message status code.
func (c *Client) SendSMS(ctx context.Context, req *SMSRequest) (*SMSResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil sms request", ErrValidation)
	}
	to, err := normalizeNumber("to", req.To)
	if err != nil {
		return nil, err
	}
	if req.From == "" {
		return nil, fmt.Errorf("%w: from is required", ErrValidation)
	}
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	form := url.Values{}
	form.Set("from", req.From)
	form.Set("to", to)
	form.Set("text", req.Text)
	if req.Type != "" {
		form.Set("type", req.Type)
	}
	if req.ClientRef != "" {
		form.Set("client-ref", req.ClientRef)
	}
	if req.StatusReportReq {
		form.Set("status-report-req", "1")
	}
	if req.Callback != "" {
		form.Set("callback", req.Callback)
	}
	if req.TTL > 0 {
		form.Set("ttl", strconv.FormatInt(req.TTL.Milliseconds(), 10))
	}

	var resp SMSResponse
	if err := c.do(ctx, sendSMSEndpoint, form, &resp); err != nil {
		return nil, err
	}

	for _, msg := range resp.Messages {
		if msg.Status != "" && msg.Status != "0" {
			return nil, &APIError{Status: http.StatusOK, Code: msg.Status, Title: msg.ErrorText}
		}
	}
	return &resp, nil
}

// GetBalance retrieves the account balance
func (c *Client) GetBalance(ctx context.Context) (*BalanceResponse, error) {
	var resp BalanceResponse
	if err := c.do(ctx, getBalanceEndpoint, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BasicInsight looks up formatting and country details for a number.
// country is an optional ISO 3166-1 alpha-2 hint for national numbers.
func (c *Client) BasicInsight(ctx context.Context, number, country string) (*BasicInsightResponse, error) {
	n, err := normalizeNumber("number", number)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("number", n)
	if country != "" {
		query.Set("country", strings.ToUpper(country))
	}

	var resp BasicInsightResponse
	if err := c.do(ctx, basicInsightEndpoint, query, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 {
		return nil, &APIError{Status: http.StatusOK, Code: strconv.Itoa(resp.Status), Title: resp.StatusMessage}
	}
	return &resp, nil
}

// StartVerification starts a verification workflow. Steps are attempted in
// order until the user completes one.
func (c *Client) StartVerification(ctx context.Context, req *VerificationRequest) (*VerificationResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil verification request", ErrValidation)
	}
	if strings.TrimSpace(req.Brand) == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrValidation)
	}
	if len(req.Workflow) == 0 {
		return nil, fmt.Errorf("%w: at least one workflow step is required", ErrValidation)
	}

	body := *req
	body.Workflow = make([]WorkflowStep, len(req.Workflow))
	for i, step := range req.Workflow {
		if step.Channel == "" {
			return nil, fmt.Errorf("%w: workflow[%d]: channel is required", ErrValidation, i)
		}
		if step.To == "" {
			return nil, fmt.Errorf("%w: workflow[%d]: to is required", ErrValidation, i)
		}
		if step.Channel != ChannelEmail {
			to, err := normalizeNumber(fmt.Sprintf("workflow[%d].to", i), step.To)
			if err != nil {
				return nil, err
			}
			step.To = to
		}
		body.Workflow[i] = step
	}

	var resp VerificationResponse
	if err := c.do(ctx, startVerificationEndpoint, &body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
