package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// EngineClient is the HTTP adapter for the browser-automation engine. The
// engine drives the actual signup flow; this client maps its responses
// into tagged provisioning errors so the retry policy and the task state
// machine can branch on them.
type EngineClient struct {
	baseURL    string
	httpClient *http.Client
}

// Ensure EngineClient implements the Client interface
var _ Client = (*EngineClient)(nil)

// NewEngineClient creates an engine client for the given base URL.
func NewEngineClient(baseURL string) *EngineClient {
	return &EngineClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Signup flows drive a real browser; give them room.
			Timeout: 3 * time.Minute,
		},
	}
}

type engineRequest struct {
	InviteLink  string `json:"invite_link"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	ProjectName string `json:"project_name"`
}

type engineResponse struct {
	Success    bool   `json:"success"`
	ProjectID  string `json:"project_id"`
	ProjectURL string `json:"project_url"`
	Error      string `json:"error"`
}

// Attempt implements Client.Attempt.
//
// Status mapping: 2xx with success=true is the happy path; 2xx with
// success=false and 422 are permanent (the engine ran the flow and the
// site rejected it); 503 is fatal (no engine capacity, the whole task
// should stop); everything else is retryable.
func (c *EngineClient) Attempt(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(engineRequest{
		InviteLink:  req.InviteLink,
		Email:       req.Email,
		Password:    req.Password,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		return nil, NewError(KindPermanent, "failed to encode engine request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/provision", bytes.NewReader(body))
	if err != nil {
		return nil, NewError(KindPermanent, "failed to build engine request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewError(KindRetryable, "automation engine unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var engResp engineResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&engResp); decodeErr != nil && resp.StatusCode < 300 {
		return nil, NewError(KindRetryable, "malformed engine response", decodeErr)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if !engResp.Success {
			return nil, NewError(KindPermanent, engineFailureMessage(engResp.Error), nil)
		}
		return &Result{
			Success:    true,
			ProjectID:  engResp.ProjectID,
			ProjectURL: engResp.ProjectURL,
		}, nil

	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, NewError(KindPermanent, engineFailureMessage(engResp.Error), nil)

	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, NewError(KindFatal, "automation engine has no capacity", nil)

	default:
		return nil, NewError(KindRetryable,
			fmt.Sprintf("engine returned status %d", resp.StatusCode), nil)
	}
}

func engineFailureMessage(msg string) string {
	if msg == "" {
		return "signup flow rejected"
	}
	return msg
}
