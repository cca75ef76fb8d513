package report

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
)

// PageOptions controls the paper size Gotenberg renders to, in inches.
// Zero values keep Gotenberg's defaults (Letter).
type PageOptions struct {
	PaperWidth  float64
	PaperHeight float64
	Margin      float64
}

// ReceiptPage is an A5 page with a narrow margin.
var ReceiptPage = PageOptions{PaperWidth: 5.83, PaperHeight: 8.27, Margin: 0.4}

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	page       PageOptions
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		page: ReceiptPage,
	}
}

// WithPage overrides the page layout used by RenderHTML.
func (c *Client) WithPage(page PageOptions) *Client {
	c.page = page
	return c
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for field, value := range c.page.fields() {
		if err := writer.WriteField(field, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("render failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(resp.Body)
}

func (p PageOptions) fields() map[string]string {
	out := make(map[string]string)
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	if p.PaperWidth > 0 {
		out["paperWidth"] = format(p.PaperWidth)
	}
	if p.PaperHeight > 0 {
		out["paperHeight"] = format(p.PaperHeight)
	}
	if p.Margin > 0 {
		for _, side := range []string{"marginTop", "marginBottom", "marginLeft", "marginRight"} {
			out[side] = format(p.Margin)
		}
	}
	return out
}
