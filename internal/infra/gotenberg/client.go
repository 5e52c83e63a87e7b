// Package gotenberg is the HTTP client for the external rendering engine.
// It owns the timeout budget of the outbound call and the classification of
// every outcome into the domain taxonomy. One call per document, no retries.
package gotenberg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gilmarTelles/xlsx-to-pdf/internal/convert"
	"github.com/gilmarTelles/xlsx-to-pdf/internal/domain"
)

const (
	convertPath = "/forms/libreoffice/convert"
	// uploadName is the filename sent to the renderer; LibreOffice picks the
	// input filter from its extension.
	uploadName = "document.xlsx"

	healthProbeBudget = 5 * time.Second
)

// Status is the renderer reachability reported by the health probe.
type Status string

const (
	StatusReachable   Status = "reachable"
	StatusUnhealthy   Status = "unhealthy"
	StatusUnreachable Status = "unreachable"
)

// Client talks to one Gotenberg instance.
type Client struct {
	baseURL    string
	healthPath string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the given base URL. timeout bounds each
// render call; healthPath defaults to /health.
func NewClient(baseURL string, timeout time.Duration, healthPath string) *Client {
	if healthPath == "" {
		healthPath = "/health"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		healthPath: healthPath,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Render posts the document with its layout hints and returns the PDF bytes.
// A timer armed at call start aborts the in-flight request once the budget
// elapses; the call site observes exactly one terminal state.
//
// Classification: transport failure or abort -> ErrRenderTimeout; renderer
// 5xx -> UpstreamError with client status 502; any other non-success status
// -> UpstreamError passing the status through; success -> the response body.
// The renderer's error body is never propagated.
func (c *Client) Render(ctx context.Context, doc []byte, opts convert.Options) ([]byte, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("files", uploadName)
	if err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}
	if _, err := part.Write(doc); err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}
	if err := w.WriteField("landscape", strconv.FormatBool(opts.Landscape)); err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}
	if err := w.WriteField("singlePageSheets", strconv.FormatBool(opts.SinglePageSheets)); err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+convertPath, body)
	if err != nil {
		return nil, fmt.Errorf("gotenberg: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Connection failures and deadline aborts look the same to the
		// caller: the renderer did not answer in time.
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderTimeout, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.UpstreamError{StatusCode: http.StatusBadGateway, Message: "PDF conversion failed"}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode, Message: "PDF conversion failed"}
	}

	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderTimeout, err)
	}
	return pdf, nil
}

// Health probes the renderer's own health path under a fixed 5s budget.
func (c *Client) Health(ctx context.Context) Status {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeBudget)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+c.healthPath, nil)
	if err != nil {
		return StatusUnreachable
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusUnreachable
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return StatusUnhealthy
	}
	return StatusReachable
}
