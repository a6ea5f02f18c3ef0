// Package apiclient talks to the White Rabbit backend API.
//
// Every call returns either the decoded payload or an *APIError classified
// into one of the ErrorKind variants; expected failures never panic.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"whiterabbit/internal/domain"
)

// APIKeyHeader carries the optional API key
const APIKeyHeader = "X-API-Key"

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 << 10

// Client is a JSON client for the backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithAPIKey attaches key to every request
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the overall per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l.Named("apiclient") }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do issues method against path, JSON-encoding body when non-nil and
// decoding a successful response into out when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return networkError(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			// the caller handed us something unencodable; that is a bug, not a request failure
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, networkError(err)
	}
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

// decodeFailure turns a non-2xx response into an *APIError
func decodeFailure(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return networkError(fmt.Errorf("read error body: %w", err))
	}

	var payload ErrorPayload
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr := newAPIError(payload)
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = resp.StatusCode
		}
		return apiErr
	}

	message := strings.TrimSpace(string(data))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Kind:       KindGeneric,
		Name:       http.StatusText(resp.StatusCode),
		Message:    message,
		StatusCode: resp.StatusCode,
	}
}

// Search runs the global fulltext search
func (c *Client) Search(ctx context.Context, q string, limit int) (*domain.SearchResponse, error) {
	query := url.Values{"q": {q}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out domain.SearchResponse
	if err := c.Do(ctx, http.MethodGet, "/api/search", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListParams filters and pages the mystery list. Zero values are omitted.
type ListParams struct {
	Limit      int
	Offset     int
	Status     domain.MysteryStatus
	Category   string
	Location   string
	TimePeriod string
}

// Values encodes the params as a query string
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Status != "" {
		v.Set("status", string(p.Status))
	}
	if p.Category != "" {
		v.Set("category", p.Category)
	}
	if p.Location != "" {
		v.Set("location", p.Location)
	}
	if p.TimePeriod != "" {
		v.Set("time_period", p.TimePeriod)
	}
	return v
}

// ListMysteries fetches a page of mysteries
func (c *Client) ListMysteries(ctx context.Context, p ListParams) (*domain.MysteryList, error) {
	var out domain.MysteryList
	if err := c.Do(ctx, http.MethodGet, "/api/mysteries", p.Values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMystery fetches one mystery with its related nodes
func (c *Client) GetMystery(ctx context.Context, id string) (*domain.MysteryDetail, error) {
	var out domain.MysteryDetail
	if err := c.Do(ctx, http.MethodGet, "/api/mysteries/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Graph fetches graph data for visualization
func (c *Client) Graph(ctx context.Context, depth, nodeLimit int) (*domain.Graph, error) {
	query := url.Values{}
	if depth > 0 {
		query.Set("depth", strconv.Itoa(depth))
	}
	if nodeLimit > 0 {
		query.Set("node_limit", strconv.Itoa(nodeLimit))
	}
	var out domain.Graph
	if err := c.Do(ctx, http.MethodGet, "/api/graph", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NodesByType lists every node of one type
func (c *Client) NodesByType(ctx context.Context, nodeType domain.Category) (*domain.NodeList, error) {
	var out domain.NodeList
	if err := c.Do(ctx, http.MethodGet, "/api/nodes/"+url.PathEscape(string(nodeType)), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTTS asks the backend to voice a quote
func (c *Client) GenerateTTS(ctx context.Context, req domain.TTSRequest) (*domain.TTSResult, error) {
	var out domain.TTSResult
	if err := c.Do(ctx, http.MethodPost, "/api/tts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WarmupTTS asks the backend to load its TTS model ahead of the first request
func (c *Client) WarmupTTS(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.Do(ctx, http.MethodPost, "/api/tts/warmup", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks backend liveness
func (c *Client) Health(ctx context.Context) (*domain.Health, error) {
	var out domain.Health
	if err := c.Do(ctx, http.MethodGet, "/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Audio is a streamed audio asset. The caller must Close it.
type Audio struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

func (a *Audio) Close() error {
	return a.Body.Close()
}

// OpenAudio streams a generated audio file. filename is not validated here.
func (c *Client) OpenAudio(ctx context.Context, filename string) (*Audio, error) {
	resp, err := c.send(ctx, http.MethodGet, "/static/audio/"+url.PathEscape(filename), nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeFailure(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Audio{
		Body:          resp.Body,
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}
