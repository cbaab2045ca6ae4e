package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"minimarket/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultUploadTimeout = 15 * time.Second
	DefaultTokenHeader   = "x-token"
)

// TokenSource supplies the persisted session for authenticated calls
type TokenSource interface {
	Load(ctx context.Context) (domain.Session, error)
}

// Options configures a Client
type Options struct {
	BaseURL       string
	TokenHeader   string
	Timeout       time.Duration
	UploadTimeout time.Duration
	HTTPClient    *http.Client
}

// Client performs the public, authenticated and multipart calls against the backend
type Client struct {
	baseURL       string
	tokenHeader   string
	timeout       time.Duration
	uploadTimeout time.Duration
	httpClient    *http.Client
	tokens        TokenSource
	logger        *zap.Logger
}

// FormFile is a file part of a multipart request
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Form is the payload of a multipart request
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// New creates a new Client
func New(opts Options, tokens TokenSource, logger *zap.Logger) *Client {
	if opts.TokenHeader == "" {
		opts.TokenHeader = DefaultTokenHeader
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = DefaultUploadTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		tokenHeader:   opts.TokenHeader,
		timeout:       opts.Timeout,
		uploadTimeout: opts.UploadTimeout,
		httpClient:    opts.HTTPClient,
		tokens:        tokens,
		logger:        logger,
	}
}

// Public performs an unauthenticated JSON request
func (c *Client) Public(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	payload, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, endpoint, payload, jsonContentType(payload), false, c.timeout)
}

// Authed performs a JSON request carrying the session token when one is stored
func (c *Client) Authed(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	payload, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, endpoint, payload, jsonContentType(payload), true, c.timeout)
}

// Form performs an authenticated multipart request. The content type is
// taken from the multipart writer so the boundary is always present.
func (c *Client) Form(ctx context.Context, method, endpoint string, form *Form) (*Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if form != nil {
		for name, value := range form.Fields {
			if err := writer.WriteField(name, value); err != nil {
				return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
			}
		}
		for _, file := range form.Files {
			part, err := writer.CreateFormFile(file.Field, file.Filename)
			if err != nil {
				return nil, fmt.Errorf("failed to create form file %s: %w", file.Field, err)
			}
			if _, err := io.Copy(part, file.Content); err != nil {
				return nil, fmt.Errorf("failed to copy form file %s: %w", file.Field, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return c.do(ctx, method, endpoint, buf.Bytes(), writer.FormDataContentType(), true, c.uploadTimeout)
}

func (c *Client) do(
	ctx context.Context,
	method, endpoint string,
	payload []byte,
	contentType string,
	authed bool,
	timeout time.Duration,
) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, c.url(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		c.attachToken(ctx, req)
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classify(ctx, reqCtx, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, c.classify(ctx, reqCtx, err)
	}

	c.logger.Debug("Backend call completed",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		httpErr := &HTTPError{Status: res.StatusCode}
		if parsed, perr := parseResponse(raw); perr == nil {
			httpErr.Message = parsed.Msg
		}
		return nil, httpErr
	}

	return parseResponse(raw)
}

func (c *Client) attachToken(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	session, err := c.tokens.Load(ctx)
	if err != nil || session.Empty() {
		// no token means the call goes out as public access
		return
	}
	req.Header.Set(c.tokenHeader, session.Token)
}

// classify maps transport errors onto the client taxonomy. Only our own
// deadline counts as a timeout; a cancelled caller is a network failure.
func (c *Client) classify(parent, reqCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func (c *Client) url(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func encodeJSON(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return payload, nil
}

func jsonContentType(payload []byte) string {
	if payload == nil {
		return ""
	}
	return "application/json"
}
