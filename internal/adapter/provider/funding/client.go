package funding

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vtu-wallet/config"
	"vtu-wallet/internal/core/domain"
	"vtu-wallet/internal/core/ports"
	"vtu-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.FundingProvider against the Paystack-style
// card-payment API. Initialize is synchronous and user-facing, so transport
// failures there surface as errors. Verify follows the reconciliation
// contract: transport failures classify as Unreachable, never Failed.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        HTTPClient
	log         zerolog.Logger
}

// NewClient creates a funding gateway client.
func NewClient(cfg config.FundingConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		http:        httpClient,
		log:         log,
	}
}

type initializeRequest struct {
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"` // kobo
	Email       string            `json:"email"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // kobo
	} `json:"data"`
}

// Initialize creates a hosted checkout session for a funding attempt and
// returns the authorization URL the caller should redirect to.
func (c *Client) Initialize(ctx context.Context, init ports.FundingInit) (string, error) {
	payload := initializeRequest{
		Reference:   init.Reference,
		Amount:      init.Amount,
		Email:       init.Email,
		CallbackURL: c.callbackURL,
		Metadata:    map[string]string{"owner_id": init.OwnerID.String()},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperror.ErrFundingInitFailed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return "", apperror.ErrFundingInitFailed(err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("reference", init.Reference).Msg("funding: initialize transport failure")
		return "", apperror.ErrFundingInitFailed(err)
	}
	defer httpResp.Body.Close()

	var resp initializeResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", apperror.ErrFundingInitFailed(err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 || !resp.Status {
		c.log.Warn().
			Int("status", httpResp.StatusCode).
			Str("message", resp.Message).
			Str("reference", init.Reference).
			Msg("funding: initialize rejected")
		return "", apperror.ErrFundingInitFailed(nil)
	}
	return resp.Data.AuthorizationURL, nil
}

// Verify fetches the current status of a funding attempt by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*ports.FundingOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("reference", reference).Msg("funding: provider unreachable")
		return &ports.FundingOutcome{Outcome: domain.OutcomeUnreachable}, nil
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.log.Warn().Int("status", httpResp.StatusCode).Str("reference", reference).Msg("funding: non-2xx verify response")
		return &ports.FundingOutcome{Outcome: domain.OutcomeUnreachable}, nil
	}

	var resp verifyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		c.log.Warn().Err(err).Str("reference", reference).Msg("funding: undecodable verify response")
		return &ports.FundingOutcome{Outcome: domain.OutcomeUnreachable}, nil
	}

	out := &ports.FundingOutcome{
		RawStatus: resp.Data.Status,
		Amount:    resp.Data.Amount,
	}
	switch strings.ToLower(resp.Data.Status) {
	case "success":
		out.Outcome = domain.OutcomeDelivered
	case "failed", "abandoned", "reversed":
		out.Outcome = domain.OutcomeFailed
	default:
		// ongoing or unknown: the customer may still complete checkout
		out.Outcome = domain.OutcomePending
	}
	return out, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}
