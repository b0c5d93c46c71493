package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"batchattest/internal/domain"
	"batchattest/internal/infra/anchor"
	"batchattest/internal/infra/codec"
)

const maxResponseBytes = 256 << 20

// Client talks to a permanent-storage gateway:
//
//	POST {base}/v1/attestations        -> 200/201 {"txId": "..."}
//	GET  {base}/v1/attestations/{txId} -> 200 attestation body, 404 unknown
type Client struct {
	baseURL string
	format  codec.Format
	httpDo  func(*http.Request) (*http.Response, error)
}

type storeResponse struct {
	TxID string `json:"txId"`
}

func NewClient(baseURL string, format codec.Format, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("gateway base url is required")
	}
	if format == "" {
		format = codec.FormatJSON
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		format:  format,
		httpDo:  doer,
	}, nil
}

func (c *Client) Name() string {
	return "http"
}

func (c *Client) Store(ctx context.Context, att domain.BatchAttestation) (string, error) {
	payload, err := anchor.BuildPayload(att)
	if err != nil {
		return "", err
	}
	body, err := codec.Encode(att, c.format)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attestations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", c.format.ContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Payload-Hash", payload.HashHex)

	respBody, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", statusError(status, respBody)
	}
	var out storeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("%w: gateway response: %v", domain.ErrAnchoringUnavailable, err)
	}
	if out.TxID == "" {
		return "", fmt.Errorf("%w: gateway returned no transaction id", domain.ErrAnchoringUnavailable)
	}
	return out.TxID, nil
}

func (c *Client) Retrieve(ctx context.Context, txID string) (domain.BatchAttestation, error) {
	if txID == "" {
		return domain.BatchAttestation{}, fmt.Errorf("%w: empty transaction id", domain.ErrNotFound)
	}
	endpoint := c.baseURL + "/v1/attestations/" + url.PathEscape(txID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.BatchAttestation{}, err
	}
	req.Header.Set("Accept", c.format.ContentType())

	respBody, status, err := c.do(req)
	if err != nil {
		return domain.BatchAttestation{}, err
	}
	if status == http.StatusNotFound {
		return domain.BatchAttestation{}, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, txID)
	}
	if status != http.StatusOK {
		return domain.BatchAttestation{}, statusError(status, respBody)
	}
	return codec.Decode(respBody, c.format)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpDo(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrAnchoringUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read gateway response: %w", domain.ErrAnchoringUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%w: gateway status %d: %s", domain.ErrAnchoringUnavailable, status, msg)
	}
	return fmt.Errorf("gateway rejected request with status %d: %s", status, msg)
}

var _ anchor.Backend = (*Client)(nil)
