package topup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"vtu-wallet/config"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Network -> provider service ID maps.
var airtimeServices = map[string]string{
	"mtn":     "mtn",
	"glo":     "glo",
	"airtel":  "airtel",
	"9mobile": "etisalat",
}

var dataServices = map[string]string{
	"mtn":     "mtn-data",
	"glo":     "glo-data",
	"airtel":  "airtel-data",
	"9mobile": "9mobile-data",
}

// deliveredCode is the provider's "request processed" response code. Any
// other code means the request itself was not accepted.
const deliveredCode = "000"

// Client implements ports.TopupProvider against the VTPass-style top-up API.
// It classifies raw responses into normalized outcomes and carries no
// business logic. Transport errors and timeouts classify as Unreachable,
// never as Failed: failure is only asserted on an explicit provider verdict.
type Client struct {
	baseURL   string
	apiKey    string
	publicKey string
	secretKey string
	http      HTTPClient
	log       zerolog.Logger
}

// NewClient creates a top-up gateway client.
func NewClient(cfg config.TopupConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		publicKey: cfg.PublicKey,
		secretKey: cfg.SecretKey,
		http:      httpClient,
		log:       log,
	}
}

// ServiceID resolves the provider service ID for a network. Returns an
// error for unsupported networks.
func ServiceID(service domain.ServiceKind, network string) (string, error) {
	var m map[string]string
	switch service {
	case domain.ServiceAirtime:
		m = airtimeServices
	case domain.ServiceData:
		m = dataServices
	default:
		return "", fmt.Errorf("service %q is not a top-up service", service)
	}
	id, ok := m[strings.ToLower(network)]
	if !ok {
		return "", fmt.Errorf("unsupported %s network: %s", service, network)
	}
	return id, nil
}

type payRequest struct {
	RequestID     string `json:"request_id"`
	ServiceID     string `json:"serviceID"`
	Amount        int64  `json:"amount,omitempty"` // naira
	Phone         string `json:"phone"`
	BillersCode   string `json:"billersCode"`
	VariationCode string `json:"variation_code"`
}

type requeryRequest struct {
	RequestID string `json:"request_id"`
}

type providerResponse struct {
	Code                string `json:"code"`
	ResponseDescription string `json:"response_description"`
	Content             struct {
		Transactions struct {
			Status        string `json:"status"`
			TransactionID string `json:"transactionId"`
		} `json:"transactions"`
	} `json:"content"`
}

// Purchase submits an airtime/data purchase and classifies the response.
func (c *Client) Purchase(ctx context.Context, req ports.TopupPurchase) (*ports.TopupOutcome, error) {
	serviceID, err := ServiceID(req.Service, req.Network)
	if err != nil {
		return nil, err
	}

	payload := payRequest{
		RequestID:     req.Reference,
		ServiceID:     serviceID,
		Phone:         req.Phone,
		BillersCode:   req.Phone,
		VariationCode: req.VariationCode,
	}
	// Airtime amounts are free-form; data plans are priced by variation code.
	if req.Service == domain.ServiceAirtime {
		payload.Amount = req.Amount / 100 // provider expects naira
	}

	resp, ok := c.post(ctx, "pay", payload)
	if !ok {
		return &ports.TopupOutcome{Outcome: domain.OutcomeUnreachable}, nil
	}
	return c.classify(resp), nil
}

// Requery asks the provider for the current status of a submitted request.
func (c *Client) Requery(ctx context.Context, reference string) (*ports.TopupOutcome, error) {
	resp, ok := c.post(ctx, "requery", requeryRequest{RequestID: reference})
	if !ok {
		return &ports.TopupOutcome{Outcome: domain.OutcomeUnreachable}, nil
	}
	return c.classify(resp), nil
}

// post performs an authenticated POST. Returns ok=false on any transport or
// decoding failure; such responses must be retried, not treated as verdicts.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*providerResponse, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("topup: marshal request")
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error().Err(err).Str("endpoint", endpoint).Msg("topup: build request")
		return nil, false
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("public-key", c.publicKey)
	req.Header.Set("secret-key", c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("topup: provider unreachable")
		return nil, false
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.log.Warn().Int("status", httpResp.StatusCode).Str("endpoint", endpoint).Msg("topup: non-2xx provider response")
		return nil, false
	}

	var resp providerResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("topup: undecodable provider response")
		return nil, false
	}
	return &resp, true
}

// classify maps a raw provider response to a normalized outcome.
func (c *Client) classify(resp *providerResponse) *ports.TopupOutcome {
	status := strings.ToLower(resp.Content.Transactions.Status)
	desc := strings.ToLower(resp.ResponseDescription)

	out := &ports.TopupOutcome{
		ProviderRef: resp.Content.Transactions.TransactionID,
		RawStatus:   status,
		Description: resp.ResponseDescription,
	}

	switch {
	case resp.Code == deliveredCode && status == "delivered":
		out.Outcome = domain.OutcomeDelivered
	case resp.Code == deliveredCode && status == "failed":
		out.Outcome = domain.OutcomeFailed
	case status == "pending" || strings.Contains(desc, "pending"):
		out.Outcome = domain.OutcomePending
	case resp.Code != deliveredCode && resp.Code != "":
		out.Outcome = domain.OutcomeFailed
	default:
		// Accepted but no recognizable verdict: let the requery sweep decide.
		out.Outcome = domain.OutcomePending
	}
	return out
}
