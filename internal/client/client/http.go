package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/common"
	"github.com/dmitrijs2005/flightschool-cms/internal/logging"
	"github.com/google/uuid"
)

const maxResponseBytes = 16 << 20

// HTTPClient talks to a Strapi-style REST API over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	mu      sync.RWMutex
	session Session
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithSession(s Session) Option {
	return func(c *HTTPClient) { c.session = s }
}

// NewHTTPClient builds a client rooted at baseURL, e.g. http://localhost:1337/api.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BindSession attaches the session owner after construction; the session
// manager itself needs a client, so the two are wired in two steps.
func (c *HTTPClient) BindSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *HTTPClient) currentSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *HTTPClient) token(ctx context.Context) string {
	if t, ok := tokenOverride(ctx); ok {
		return t
	}
	if s := c.currentSession(); s != nil {
		return s.Token(ctx)
	}
	return ""
}

func (c *HTTPClient) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs one request and returns the response body of a 2xx answer.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	requestID := uuid.NewString()
	log := c.log.With("method", method, "path", path, "request_id", requestID)

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, networkError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn(ctx, "cms request failed", "error", err)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(err)
	}
	log.Debug(ctx, "cms request", "status", resp.StatusCode, "duration", time.Since(started))

	if resp.StatusCode == http.StatusUnauthorized {
		if s := c.currentSession(); s != nil {
			s.Invalidate(ctx)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	if payload == nil {
		return c.do(ctx, method, path, query, nil, "")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, decodeError(err)
	}
	return c.do(ctx, method, path, query, bytes.NewReader(b), "application/json")
}

func decodeInto(data []byte, target any) error {
	if err := json.Unmarshal(data, target); err != nil {
		return decodeError(err)
	}
	return nil
}

func recordPath(kind models.Kind, id models.ID) string {
	return kind.Endpoint() + "/" + url.PathEscape(id.String())
}

func populate(kind models.Kind) url.Values {
	return url.Values{"populate": []string{kind.Populate()}}
}

func (c *HTTPClient) FetchCollection(ctx context.Context, kind models.Kind, filter models.Filter) (json.RawMessage, error) {
	query := filter.Values()
	query.Set("populate", kind.Populate())
	return c.do(ctx, http.MethodGet, kind.Endpoint(), query, nil, "")
}

func (c *HTTPClient) FetchByID(ctx context.Context, kind models.Kind, id models.ID) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, recordPath(kind, id), populate(kind), nil, "")
}

type dataEnvelope struct {
	Data map[string]any `json:"data"`
}

func (c *HTTPClient) Create(ctx context.Context, kind models.Kind, attributes map[string]any) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, kind.Endpoint(), populate(kind), dataEnvelope{Data: attributes})
}

func (c *HTTPClient) Update(ctx context.Context, kind models.Kind, id models.ID, attributes map[string]any) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, recordPath(kind, id), populate(kind), dataEnvelope{Data: attributes})
}

func (c *HTTPClient) Delete(ctx context.Context, kind models.Kind, id models.ID) error {
	_, err := c.do(ctx, http.MethodDelete, recordPath(kind, id), nil, nil, "")
	return err
}

// UploadAsset sends r as the "files" part of a multipart form and returns the
// first asset the service reports.
func (c *HTTPClient) UploadAsset(ctx context.Context, filename string, r io.Reader) (*models.Asset, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("files", filepath.Base(filename))
	if err != nil {
		return nil, networkError(err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, networkError(err)
	}
	if err := mw.Close(); err != nil {
		return nil, networkError(err)
	}

	data, err := c.do(ctx, http.MethodPost, "upload", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var assets []models.Asset
	if err := decodeInto(data, &assets); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, decodeError(errEmptyUpload)
	}
	return &assets[0], nil
}

func (c *HTTPClient) Login(ctx context.Context, credentials models.Credentials) (*models.AuthResponse, error) {
	data, err := c.doJSON(ctx, http.MethodPost, "auth/local", nil, credentials)
	if err != nil {
		return nil, err
	}
	var resp models.AuthResponse
	if err := decodeInto(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	return c.user(ctx, "users/me")
}

func (c *HTTPClient) User(ctx context.Context, id models.FlexID) (*models.User, error) {
	return c.user(ctx, "users/"+url.PathEscape(string(id)))
}

func (c *HTTPClient) user(ctx context.Context, path string) (*models.User, error) {
	data, err := c.do(ctx, http.MethodGet, path, url.Values{"populate": []string{"role"}}, nil, "")
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := decodeInto(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
