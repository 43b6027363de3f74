// Utilities for importing credentials from a "Copy as cURL" request.
package shared

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

var (
	curlHeaderRegex = regexp.MustCompile(`(?:-H|--header)\s+(?:'([^']+)'|"([^"]+)")`)
	curlURLRegex    = regexp.MustCompile(`(?:'|")?(https?://[^\s'"]+)`)
)

// CurlRequest is the subset of a cURL command needed to talk to the admin API as the logged-in user.
type CurlRequest struct {
	URL     string
	Headers map[string]string
}

// ParseCurlFile reads a file containing a cURL command (as copied from browser dev tools) and parses it.
func ParseCurlFile(path string) (*CurlRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}
	return ParseCurlCommand(content)
}

// ParseCurlCommand extracts the target URL and headers from a cURL command. Header keys are lower-cased.
func ParseCurlCommand(data []byte) (*CurlRequest, error) {
	cmd := strings.ReplaceAll(string(data), "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "^\n", " ")

	req := &CurlRequest{Headers: make(map[string]string)}
	for _, match := range curlHeaderRegex.FindAllStringSubmatch(cmd, -1) {
		line := match[1]
		if line == "" {
			line = match[2]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		req.Headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	if m := curlURLRegex.FindStringSubmatch(curlHeaderRegex.ReplaceAllString(cmd, "")); m != nil {
		req.URL = m[1]
	}

	if len(req.Headers) == 0 && req.URL == "" {
		return nil, fmt.Errorf("%w: no URL or headers found in curl command", ErrInvalidInput)
	}
	return req, nil
}

// BearerToken returns the token from an "Authorization: Bearer ..." header.
func (c *CurlRequest) BearerToken() (string, error) {
	auth, ok := c.Headers["authorization"]
	if !ok {
		return "", fmt.Errorf("%w: no authorization header in curl command", ErrMissingCredentials)
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: authorization header is not a bearer token", ErrMissingCredentials)
	}
	return strings.TrimSpace(token), nil
}

// APIBase returns the request URL truncated after its "/api" path segment, or the bare origin when there is none.
func (c *CurlRequest) APIBase() (string, error) {
	if c.URL == "" {
		return "", fmt.Errorf("%w: curl command has no URL", ErrInvalidInput)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	base := u.Scheme + "://" + u.Host
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "api" {
			return base + "/" + strings.Join(segments[:i+1], "/"), nil
		}
	}
	return base, nil
}
