// Package validation checks URLs supplied by configuration, flags and
// remote records before they are used.
package validation

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrEmptyURL      = errors.New("URL cannot be empty")
	ErrURLTooLong    = errors.New("URL too long")
	ErrInvalidChars  = errors.New("URL contains invalid characters")
	ErrScheme        = errors.New("URL must use http or https protocol")
	ErrNoHost        = errors.New("URL must have a valid hostname")
	ErrLocalhost     = errors.New("localhost URLs are not permitted")
	ErrPrivateIP     = errors.New("private IP addresses are not permitted")
	ErrTraversal     = errors.New("directory traversal patterns not allowed in URL path")
	ErrQueryNotAllow = errors.New("base URL must not carry a query or fragment")
)

const defaultMaxLength = 2048

// URLValidator validates API base URLs and links taken from remote records.
type URLValidator struct {
	// AllowLocalhost permits localhost and loopback hosts.
	AllowLocalhost bool
	// AllowPrivateIPs permits RFC 1918, link-local and unique local addresses.
	AllowPrivateIPs bool
	MaxLength       int
}

// NewURLValidator returns a validator that rejects local and private hosts.
func NewURLValidator() *URLValidator {
	return &URLValidator{MaxLength: defaultMaxLength}
}

// NewPermissiveURLValidator returns a validator for local development
// servers.
func NewPermissiveURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       defaultMaxLength,
	}
}

// ForLocal picks the permissive validator when allowLocal is set.
func ForLocal(allowLocal bool) *URLValidator {
	if allowLocal {
		return NewPermissiveURLValidator()
	}
	return NewURLValidator()
}

// ValidateBaseURL checks an API base URL and returns it normalized without a
// trailing slash. A missing scheme defaults to https.
func (v *URLValidator) ValidateBaseURL(input string) (string, error) {
	u, err := v.parse(input, true)
	if err != nil {
		return "", err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", ErrQueryNotAllow
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

// ValidateLink checks a URL taken from a record before it is handed to an
// external program. The scheme must be present.
func (v *URLValidator) ValidateLink(input string) (string, error) {
	u, err := v.parse(input, false)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (v *URLValidator) parse(input string, addScheme bool) (*url.URL, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return nil, ErrEmptyURL
	}
	maxLen := v.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}
	if len(input) > maxLen {
		return nil, fmt.Errorf("%w (max %d characters)", ErrURLTooLong, maxLen)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return nil, ErrInvalidChars
	}

	if addScheme && !strings.Contains(input, "://") {
		input = "https://" + input
	}

	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrScheme
	}
	if u.Hostname() == "" {
		return nil, ErrNoHost
	}
	if err := v.checkHost(u.Hostname()); err != nil {
		return nil, err
	}
	if strings.Contains(u.Path, "..") {
		return nil, ErrTraversal
	}
	return u, nil
}

func (v *URLValidator) checkHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return ErrLocalhost
	}
	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return ErrPrivateIP
		}
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
