package core

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint is a normalized-content hash used to detect near-identical pages
// reachable through different URLs.
type Fingerprint string

// FingerprintText hashes the normalized form of text with BLAKE2b-128.
// Case, punctuation and whitespace runs do not affect the result.
func FingerprintText(text string) Fingerprint {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(NormalizeText(text)))
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// NormalizeText lowercases text, drops punctuation and collapses whitespace.
func NormalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
		default:
			space = true
		}
	}
	return b.String()
}

// NormalizeURL reduces a URL to scheme, host and path so trivial variants
// compare equal. Query string, fragment, user info, default ports, a leading
// "www." and trailing slashes are dropped; http is folded into https.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" {
		scheme = "https"
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = host + ":" + port
	}

	path := u.EscapedPath()
	for strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return scheme + "://" + host + path, nil
}

// DomainOf returns the lowercase host of rawURL without a "www." prefix.
// It returns an empty string for unparsable input.
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
