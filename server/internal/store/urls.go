package store

import (
	"fmt"
	"net/url"
	"strings"
)

// URLResolver maps asset keys to the URLs they are served under.
type URLResolver struct {
	base string
}

func NewURLResolver(baseURL string) (*URLResolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse public base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("public base url must be absolute: %q", baseURL)
	}

	return &URLResolver{
		base: strings.TrimSuffix(u.String(), "/"),
	}, nil
}

// URLFor returns the absolute URL of key. It does no I/O and does not check the key exists.
func (r *URLResolver) URLFor(key string) string {
	return r.base + "/" + url.PathEscape(key)
}
