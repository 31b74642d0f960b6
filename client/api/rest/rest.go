package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const uploadField = "images"

// StatusError is returned when the server answers with an unexpected status code.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
}

type UploadFile struct {
	Name    string
	Content []byte
}

type UploadedFile struct {
	OriginalName string `json:"originalName"`
	Key          string `json:"key"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	Origin       string `json:"origin"`
	Error        string `json:"error"`
}

type UploadResponse struct {
	Message string          `json:"message"`
	Files   []*UploadedFile `json:"files"`
}

type FetchResponse struct {
	Message string `json:"message"`
	File    string `json:"file"`
	URL     string `json:"url"`
}

type Client struct {
	logger  *logrus.Logger
	baseURL string
	cli     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default http client, which has a 30 seconds timeout.
func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		c.cli = cli
	}
}

func NewClient(logger *logrus.Logger, baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}

	c := &Client{
		logger:  logger,
		baseURL: u.String(),
		cli: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Upload sends files in a single multipart request. A partially successful upload returns the
// response together with a *StatusError so callers can report per-file outcomes.
// The request is only retried when no connection could be made, so a batch the server may
// have received is never sent twice.
func (c *Client) Upload(ctx context.Context, files []UploadFile) (*UploadResponse, error) {
	u, err := url.JoinPath(c.baseURL, "api/upload-multiple")
	if err != nil {
		return nil, fmt.Errorf("create url: %w", err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		w, err := mw.CreateFormFile(uploadField, f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file %q: %w", f.Name, err)
		}
		_, err = w.Write(f.Content)
		if err != nil {
			return nil, fmt.Errorf("write form file %q: %w", f.Name, err)
		}
	}
	err = mw.Close()
	if err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	payload := body.Bytes()

	resp, err := c.doRequestWithRetry(ctx, "Upload", false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload with retry: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMultiStatus, http.StatusInternalServerError:
	default:
		return nil, c.statusError(resp, "Upload")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response UploadResponse
	err = json.Unmarshal(raw, &response)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			// not every failure carries per-file outcomes
			return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(raw))}
		}
		return nil, fmt.Errorf("json decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &response, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: response.Message}
	}

	return &response, nil
}

// Fetch asks the server to download and store the image at imageURL.
func (c *Client) Fetch(ctx context.Context, imageURL string) (*FetchResponse, error) {
	u, err := url.JoinPath(c.baseURL, "api/upload-dog")
	if err != nil {
		return nil, fmt.Errorf("create url: %w", err)
	}
	payload, err := json.Marshal(map[string]string{"imageUrl": imageURL})
	if err != nil {
		return nil, fmt.Errorf("json encode request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, "Fetch", false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch with retry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "Fetch")
	}

	var response FetchResponse
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return nil, fmt.Errorf("json decode response: %w", err)
	}

	return &response, nil
}

// Sample returns the URLs of a random selection of stored assets.
func (c *Client) Sample(ctx context.Context) ([]string, error) {
	u, err := url.JoinPath(c.baseURL, "api/random-images")
	if err != nil {
		return nil, fmt.Errorf("create url: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, "Sample", true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sample with retry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "Sample")
	}

	var urls []string
	err = json.NewDecoder(resp.Body).Decode(&urls)
	if err != nil {
		return nil, fmt.Errorf("json decode response: %w", err)
	}

	return urls, nil
}

func (c *Client) statusError(resp *http.Response, method string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	c.logger.WithFields(logrus.Fields{
		"method": method,
		"resp":   fmt.Sprintf("%q", string(body)),
	}).Error("Request failed with unexpected status code")

	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

// doRequestWithRetry builds a fresh request for every attempt so request bodies are never
// replayed half consumed. Only transport errors are retried, and for non idempotent requests
// only those raised before a connection was established.
func (c *Client) doRequestWithRetry(ctx context.Context, method string, idempotent bool, newRequest func() (*http.Request, error)) (*http.Response, error) {
	bk := newExponentialBackoffConfig()
	resp, err := backoff.RetryWithData[*http.Response](func() (*http.Response, error) {
		req, err := newRequest()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("could not create request: %w", err))
		}
		resp, err := c.cli.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, backoff.Permanent(fmt.Errorf("could not make http call: %w", err))
			}
			if !idempotent && !isDialError(err) {
				return nil, backoff.Permanent(fmt.Errorf("http request failed after the connection was made: %w", err))
			}
			c.logger.WithField("method", method).WithError(err).Error("Failed to make http request, retrying...")
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		return resp, nil
	}, backoff.WithContext(bk, ctx))
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func newExponentialBackoffConfig() *backoff.ExponentialBackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(time.Second*3),
		backoff.WithMaxInterval(time.Second),
		backoff.WithInitialInterval(time.Millisecond*100),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
	)
}
