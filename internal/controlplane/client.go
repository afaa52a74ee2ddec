// Package controlplane implements the HTTP client for the remote control
// plane used by managed-tier backup jobs: per-part pre-signed upload URLs
// and the finish-upload contract.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds each control-plane request
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is captured for reporting
const maxErrorBody = 4 * 1024

// Client talks to the remote control plane
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a control-plane client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// APIError is a non-2xx control-plane response. The body is surfaced
// verbatim in the job's terminal error payload.
type APIError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("control plane returned status %d: %s", e.StatusCode, e.Body)
}

// PresignPartRequest asks for one part's pre-signed upload URL
type PresignPartRequest struct {
	AgentID    string `json:"agent_id"`
	PartNumber int64  `json:"part_number"`
	PartHash   string `json:"part_hash"`
}

// PresignPartResponse carries the destination URL for one part
type PresignPartResponse struct {
	URL string `json:"url"`
}

// CompletedPart mirrors one acknowledged (part number, ETag) pair
type CompletedPart struct {
	PartNumber int64  `json:"part_number"`
	ETag       string `json:"etag"`
}

// FinishUploadRequest is the remote finish-upload contract
type FinishUploadRequest struct {
	AgentID     string          `json:"agent_id"`
	ObjectName  string          `json:"object_name,omitempty"`
	UploadID    string          `json:"upload_id,omitempty"`
	Parts       []CompletedPart `json:"parts"`
	ContentHash string          `json:"content_hash"`
	PublicKey   string          `json:"public_key"`
}

// PresignPart requests a pre-signed URL for one upload part
func (c *Client) PresignPart(ctx context.Context, req PresignPartRequest) (string, error) {
	var resp PresignPartResponse
	if err := c.post(ctx, "/v1/uploads/parts/presign", req, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("control plane returned an empty upload URL for part %d", req.PartNumber)
	}
	return resp.URL, nil
}

// FinishUpload finalizes a delegated upload
func (c *Client) FinishUpload(ctx context.Context, req FinishUploadRequest) error {
	return c.post(ctx, "/v1/uploads/finish", req, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("control plane request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
