// Package hfapi is a minimal client for the Hugging Face Inference API.
package hfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
)

// DefaultBaseURL is the serverless inference router.
const DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"

// Client calls models hosted behind the inference router.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client. baseURL defaults to DefaultBaseURL if empty.
func New(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Request is the common payload shape accepted by every pipeline.
type Request struct {
	Inputs     any            `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    *Options       `json:"options,omitempty"`
}

// Options controls router behaviour rather than the model.
type Options struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
}

// QAInputs is the inputs object of the question-answering pipeline.
type QAInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// Do posts req to model (optionally under a pipeline sub-path) and decodes
// the JSON response into out.
func (c *Client) Do(ctx context.Context, model, pipeline string, req Request, out any) error {
	if req.Options == nil {
		req.Options = &Options{WaitForModel: true}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal inference request: %w", err)
	}

	url := c.baseURL + "/" + model
	if pipeline != "" {
		url += "/pipeline/" + pipeline
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: inference request to %s: %v", apperr.ErrUpstream, model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned status %d: %s", apperr.ErrUpstream, model, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response from %s: %v", apperr.ErrUpstream, model, err)
	}
	return nil
}
