package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hedisam/assetd/server/internal/store"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 20 << 20

	maxRedirects = 5
)

var (
	ErrForbiddenAddress = errors.New("destination address is not allowed")
	ErrTooLarge         = errors.New("response body exceeds size limit")
	ErrStatus           = errors.New("unexpected response status")
	ErrRedirect         = errors.New("redirect not followed")
)

// Result is a fully buffered remote resource.
type Result struct {
	Body        []byte
	ContentType string
	URL         *url.URL
}

// Extension returns a file extension for the fetched resource, taken from the URL path when it
// looks like an image, then from the Content-Type, then falling back to ".jpg".
func (r *Result) Extension() string {
	if r.URL != nil {
		ext := strings.ToLower(path.Ext(r.URL.Path))
		if isImageExt(ext) {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(r.ContentType); err == nil {
		exts, _ := mime.ExtensionsByType(mediaType)
		for _, ext := range exts {
			if isImageExt(ext) {
				return ext
			}
		}
	}
	return ".jpg"
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg", ".avif", ".ico", ".tif", ".tiff":
		return true
	}
	return false
}

type Config struct {
	Timeout              time.Duration
	MaxBytes             int64
	AllowPrivateNetworks bool
}

// Fetcher downloads remote resources on behalf of callers. Every URL is treated as untrusted:
// only http(s) is accepted, redirects are bounded, responses are capped and, unless explicitly
// allowed, connections to loopback, private and link-local addresses are refused at dial time.
type Fetcher struct {
	logger   *logrus.Logger
	cli      *http.Client
	timeout  time.Duration
	maxBytes int64
}

func New(logger *logrus.Logger, cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	if !cfg.AllowPrivateNetworks {
		dialer.Control = denyPrivateAddresses
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{
		logger: logger,
		cli: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("%w: stopped after %d redirects", ErrRedirect, maxRedirects)
				}
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return fmt.Errorf("%w: unsupported scheme %q", ErrRedirect, req.URL.Scheme)
				}
				return nil
			},
		},
		timeout:  cfg.Timeout,
		maxBytes: cfg.MaxBytes,
	}
}

// ParseURL validates rawURL as an absolute http(s) URL without touching the network.
func ParseURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", store.ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", store.ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: host is required", store.ErrInvalidURL)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: credentials in url are not allowed", store.ErrInvalidURL)
	}
	return u, nil
}

// Fetch GETs rawURL and returns the whole body. Transport errors are retried with exponential
// backoff inside the overall timeout; a non-2xx status is final. All failures wrap
// store.ErrFetchFailed except URL validation, which wraps store.ErrInvalidURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	logger := f.logger.WithContext(ctx).WithField("url", u.Redacted())

	bk := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(f.timeout),
		backoff.WithMaxInterval(time.Second),
		backoff.WithInitialInterval(time.Millisecond*100),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0.2),
	)
	result, err := backoff.RetryWithData[*Result](func() (*Result, error) {
		result, err := f.fetchOnce(ctx, u)
		if err == nil {
			return result, nil
		}
		if isPermanent(ctx, err) {
			return nil, backoff.Permanent(err)
		}
		logger.WithError(err).Warn("Failed to fetch remote resource, retrying")
		return nil, err
	}, backoff.WithContext(bk, ctx))
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch remote resource")
		return nil, fmt.Errorf("%w: %w", store.ErrFetchFailed, err)
	}

	logger.WithField("size", len(result.Body)).Debug("Fetched remote resource")
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, u *url.URL) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: content length %d", ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL,
	}, nil
}

func isPermanent(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, ErrStatus) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrForbiddenAddress) ||
		errors.Is(err, ErrRedirect) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func denyPrivateAddresses(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForbiddenAddress, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %q is not an ip address", ErrForbiddenAddress, host)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, ip)
	}
	return nil
}
