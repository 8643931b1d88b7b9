// Package api is the HTTP/JSON boundary towards the grocery tracker backend.
//
// The backend is an external collaborator: it parses uploaded receipts and
// computes every analytics number. This package owns no state beyond the
// HTTP client and translates wire payloads into core types.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scontrino/internal/core"
)

// Client talks to the tracker API. Timeout semantics live here, in the
// underlying http.Client; callers impose none of their own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the given base URL (e.g.
// "http://localhost:5000/api"). A zero timeout means no client-side timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError lifts the server's {"error": "..."} payload into *Error.
func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		_ = json.Unmarshal(body, &payload)
	}
	return &Error{StatusCode: resp.StatusCode, Message: payload.Error}
}

// Summary fetches the comprehensive spending summary.
func (c *Client) Summary(ctx context.Context) (SummaryPayload, error) {
	var out SummaryPayload
	err := c.get(ctx, "/analytics/summary", nil, &out)
	return out, err
}

// MonthlyTrends fetches per-month spending for the trailing window.
func (c *Client) MonthlyTrends(ctx context.Context, months int) (MonthlyTrendsPayload, error) {
	q := url.Values{}
	if months > 0 {
		q.Set("months", strconv.Itoa(months))
	}
	var out MonthlyTrendsPayload
	err := c.get(ctx, "/analytics/monthly-trends", q, &out)
	return out, err
}

// CategoryBreakdown fetches spending grouped by item category.
func (c *Client) CategoryBreakdown(ctx context.Context) (CategoryBreakdownPayload, error) {
	var out CategoryBreakdownPayload
	err := c.get(ctx, "/analytics/category-breakdown", nil, &out)
	return out, err
}

// TopItems fetches the most expensive items ranking.
func (c *Client) TopItems(ctx context.Context, limit int) (TopItemsPayload, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out TopItemsPayload
	err := c.get(ctx, "/analytics/top-items", q, &out)
	return out, err
}

// StoreComparison fetches per-store spending totals.
func (c *Client) StoreComparison(ctx context.Context) (StoreComparisonPayload, error) {
	var out StoreComparisonPayload
	err := c.get(ctx, "/analytics/store-comparison", nil, &out)
	return out, err
}

// ShoppingFrequency fetches the trip-cadence descriptor.
func (c *Client) ShoppingFrequency(ctx context.Context) (FrequencyPayload, error) {
	var out FrequencyPayload
	err := c.get(ctx, "/analytics/shopping-frequency", nil, &out)
	return out, err
}

// WasteInsights fetches the bulk-buy suggestions.
func (c *Client) WasteInsights(ctx context.Context) (WasteInsightsPayload, error) {
	var out WasteInsightsPayload
	err := c.get(ctx, "/analytics/waste-insights", nil, &out)
	return out, err
}

// ListReceipts fetches up to limit receipts, newest first.
func (c *Client) ListReceipts(ctx context.Context, limit int) ([]core.Receipt, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out receiptListPayload
	if err := c.get(ctx, "/receipts", q, &out); err != nil {
		return nil, err
	}
	receipts := make([]core.Receipt, 0, len(out.Receipts))
	for _, p := range out.Receipts {
		receipts = append(receipts, p.toCore())
	}
	return receipts, nil
}

// DeleteReceipt asks the server to remove a receipt.
func (c *Client) DeleteReceipt(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("%s/receipts/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	var out deleteEnvelope
	if err := c.do(req, &out); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Receipt deleted on server", "id", id, "message", out.Message)
	return nil
}

// UploadScan submits a photographed receipt image for parsing.
func (c *Client) UploadScan(ctx context.Context, filename string, data []byte) (core.Receipt, error) {
	return c.upload(ctx, "/receipts/upload-scan", filename, data)
}

// UploadEmail submits a .eml mail export for parsing.
func (c *Client) UploadEmail(ctx context.Context, filename string, data []byte) (core.Receipt, error) {
	return c.upload(ctx, "/receipts/upload-email", filename, data)
}

func (c *Client) upload(ctx context.Context, path, filename string, data []byte) (core.Receipt, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return core.Receipt{}, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return core.Receipt{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadEnvelope
	if err := c.do(req, &out); err != nil {
		return core.Receipt{}, err
	}
	slog.DebugContext(ctx, "Upload accepted by server",
		"filename", filename, "receipt_id", out.Receipt.ID, "message", out.Message)
	return out.Receipt.toCore(), nil
}

// Ping probes the backend's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "/health", nil, nil)
}
