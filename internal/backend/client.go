package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/knowpilot/internal/model"
)

// maxErrorBody caps how much of a failed response is kept for the message.
const maxErrorBody = 4096

// Client wraps the KnowPilot backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records every call in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a new backend client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("backend URL %q must start with http:// or https://", baseURL)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping checks that the backend answers the content listing.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.AllContents(ctx)
	return err
}

// AllContents lists every content record.
func (c *Client) AllContents(ctx context.Context) ([]model.ContentRecord, error) {
	var out []model.ContentRecord
	err := c.do(ctx, http.MethodGet, "/all_contents", "/all_contents", &out)
	return out, err
}

// GenerateQASingle asks the backend to generate a Q&A pair for one record.
func (c *Client) GenerateQASingle(ctx context.Context, id int64) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/generate-qa-single/{id}", "/generate-qa-single/"+itoa(id), &out)
	return out, err
}

// GenerateKnowledgeSingle asks the backend to generate a knowledge point for one record.
func (c *Client) GenerateKnowledgeSingle(ctx context.Context, id int64) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/generate-knowledge-single/{id}", "/generate-knowledge-single/"+itoa(id), &out)
	return out, err
}

// GenerateQAAll generates Q&A pairs for every record.
func (c *Client) GenerateQAAll(ctx context.Context) (model.UpdatedCount, error) {
	var out model.UpdatedCount
	err := c.do(ctx, http.MethodGet, "/generate-qa-all", "/generate-qa-all", &out)
	return out, err
}

// GenerateKnowledgeAll generates knowledge points for every record.
func (c *Client) GenerateKnowledgeAll(ctx context.Context) (model.UpdatedCount, error) {
	var out model.UpdatedCount
	err := c.do(ctx, http.MethodGet, "/generate-knowledge-all", "/generate-knowledge-all", &out)
	return out, err
}

// ClearAllKnowledgePoints removes every generated knowledge point.
func (c *Client) ClearAllKnowledgePoints(ctx context.Context) (model.UpdatedCount, error) {
	var out model.UpdatedCount
	err := c.do(ctx, http.MethodGet, "/clear-all-knowledge-points", "/clear-all-knowledge-points", &out)
	return out, err
}

// KnowledgeAll lists the knowledge-augmented records.
func (c *Client) KnowledgeAll(ctx context.Context) ([]model.ContentRecord, error) {
	var out []model.ContentRecord
	err := c.do(ctx, http.MethodGet, "/knowledge/get-all", "/knowledge/get-all", &out)
	return out, err
}

// KnowledgeGenerateAll runs bulk knowledge generation.
func (c *Client) KnowledgeGenerateAll(ctx context.Context) (model.SuccessCount, error) {
	var out model.SuccessCount
	err := c.do(ctx, http.MethodPost, "/knowledge/generate-all", "/knowledge/generate-all", &out)
	return out, err
}

// KnowledgeClearAll clears every knowledge point. Only the status matters.
func (c *Client) KnowledgeClearAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/knowledge/clear-all", "/knowledge/clear-all", nil)
}

// GroupData lists the question records of group k.
func (c *Client) GroupData(ctx context.Context, k int) ([]model.QuestionRecord, error) {
	var out []model.QuestionRecord
	err := c.do(ctx, http.MethodGet, "/content-group/get-data/{k}", "/content-group/get-data/"+strconv.Itoa(k), &out)
	return out, err
}

// AvailableGroups lists the k values the backend has tables for.
func (c *Client) AvailableGroups(ctx context.Context) ([]int, error) {
	var out []int
	err := c.do(ctx, http.MethodGet, "/content-group/available-groups", "/content-group/available-groups", &out)
	return out, err
}

// GenerateSingleChoiceQuestion generates one question in group k.
func (c *Client) GenerateSingleChoiceQuestion(ctx context.Context, k int) (model.GeneratedQuestion, error) {
	var out model.GeneratedQuestion
	err := c.do(ctx, http.MethodPost, "/content-group/generate-single-choice-question/{k}",
		"/content-group/generate-single-choice-question/"+strconv.Itoa(k), &out)
	return out, err
}

// GenerateQuestionsForAll generates questions for every row of group k.
func (c *Client) GenerateQuestionsForAll(ctx context.Context, k int) (model.SuccessCount, error) {
	var out model.SuccessCount
	err := c.do(ctx, http.MethodPost, "/content-group/generate-questions-for-all/{k}",
		"/content-group/generate-questions-for-all/"+strconv.Itoa(k), &out)
	return out, err
}

// CreateAndGenerate creates the table for group k and fills it with questions.
func (c *Client) CreateAndGenerate(ctx context.Context, k int) (model.CreateAndGenerateResult, error) {
	var out model.CreateAndGenerateResult
	err := c.do(ctx, http.MethodPost, "/content-group/create-and-generate/{k}",
		"/content-group/create-and-generate/"+strconv.Itoa(k), &out)
	return out, err
}

// do performs one call. route is the path template used as the metrics label.
// A nil out discards the body.
func (c *Client) do(ctx context.Context, method, route, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Endpoint: route, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("backend request", "method", method, "path", path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(method, route, 0, time.Since(start))
		return &Error{Kind: KindTransport, Endpoint: route, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.observe(method, route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.Warn("backend error response", "path", path, "status", resp.StatusCode)
		return &Error{Kind: KindStatus, Endpoint: route, Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindDecode, Endpoint: route, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
