// Package gateway is the HTTP client of the object-store gateway server.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hszk-dev/atelier/internal/domain/model"
	"github.com/hszk-dev/atelier/internal/domain/repository"
)

// ErrUnexpectedStatus is returned for non-2xx gateway or store responses.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// maxErrorBody bounds how much of a failed response body is kept in the error.
const maxErrorBody = 512

// Config holds configuration for the gateway client.
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds presign and delete calls. PUTs are bounded by the caller's context.
	Timeout time.Duration
}

// Client implements repository.ObjectGateway over HTTP.
type Client struct {
	baseURL string
	token   string
	api     *http.Client
	store   *http.Client
}

// NewClient creates a gateway client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	api := *httpClient
	if cfg.Timeout > 0 {
		api.Timeout = cfg.Timeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		api:     &api,
		store:   httpClient,
	}
}

type presignRequest struct {
	Files  []repository.FileDescriptor `json:"files"`
	Folder model.Folder                `json:"folder"`
}

// Presign requests upload URLs for the whole batch in one call.
func (c *Client) Presign(ctx context.Context, files []repository.FileDescriptor, folder model.Folder) (*repository.PresignBatch, error) {
	var batch repository.PresignBatch
	if err := c.postJSON(ctx, "/v1/presign", presignRequest{Files: files, Folder: folder}, false, &batch); err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &batch, nil
}

// Put uploads body to a presigned URL and reports byte progress.
func (c *Client) Put(ctx context.Context, uploadURL string, body io.Reader, size int64, contentType string, progress repository.ProgressFunc) error {
	if progress != nil {
		body = &progressReader{r: body, total: size, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, body)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := c.store.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

type deleteRequest struct {
	URL string `json:"url"`
}

// Delete asks the gateway to remove the object behind publicURL.
func (c *Client) Delete(ctx context.Context, publicURL string) error {
	if err := c.postJSON(ctx, "/v1/upload/delete", deleteRequest{URL: publicURL}, true, nil); err != nil {
		return fmt.Errorf("delete %s: %w", publicURL, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in any, auth bool, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if auth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: %s; body: %s", ErrUnexpectedStatus, resp.Status, strings.TrimSpace(string(b)))
}

// progressReader reports cumulative bytes read to fn.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    repository.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

var _ repository.ObjectGateway = (*Client)(nil)
