// Package flows triggers executions on the external conversation flow engine.
package flows

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"payhook/internal/platform/auth"
	"payhook/internal/platform/models"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	audience        = "flows"
	signatureHeader = "X-Payhook-Signature"
)

type TriggerRequest struct {
	CompanyID int64             `json:"companyId"`
	Variables map[string]string `json:"variables"`
}

type Execution struct {
	FlowExecutionID string `json:"flowExecutionId"`
	TicketID        string `json:"ticketId"`
}

type Client struct {
	http   *resty.Client
	tokens *auth.TokenService
	secret string
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimRight(baseURL, "/"))
	httpClient.SetTimeout(timeout)
	httpClient.SetRetryCount(0)
	httpClient.SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		tokens: auth.NewTokenService(secret, time.Minute),
		secret: secret,
	}
}

// Trigger starts flow for the given variables. Any non-2xx answer is an error.
func (c *Client) Trigger(ctx context.Context, flow *models.Flow, vars map[string]string) (*Execution, error) {
	body, err := json.Marshal(TriggerRequest{CompanyID: flow.CompanyID, Variables: vars})
	if err != nil {
		return nil, err
	}

	token, err := c.tokens.Issue(audience, flow.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign flow request: %w", err)
	}

	var exec Execution
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader(signatureHeader, Sign(c.secret, body)).
		SetBody(body).
		SetResult(&exec).
		Post(fmt.Sprintf("/flows/%d/trigger", flow.ID))
	if err != nil {
		return nil, fmt.Errorf("flow trigger request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("flow engine returned HTTP %d", resp.StatusCode())
	}

	log.Debug().
		Int64("flow_id", flow.ID).
		Str("execution_id", exec.FlowExecutionID).
		Msg("flow triggered")

	return &exec, nil
}

// Sign is the hex HMAC-SHA256 of payload, sent so the flow engine can check
// the body was not altered.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
