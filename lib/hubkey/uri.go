// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// KeyIDSchemePrefix marks a vault key ID as Hub-managed. The real
// scheme of the Hub API follows the marker: "hub+https" → "https".
const KeyIDSchemePrefix = "hub+"

// ErrInvalidKeyID is returned when a vault key ID cannot be turned into
// a Hub base URI.
var ErrInvalidKeyID = errors.New("hubkey: invalid vault key ID")

// VaultBaseURI derives the base URI of the vault's Hub resources from
// the vault's key ID by stripping the "hub+" marker from the scheme.
// Authority, path, query, and fragment are kept as they are.
func VaultBaseURI(keyID string) (*url.URL, error) {
	if keyID == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKeyID)
	}
	parsed, err := url.Parse(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyID, err)
	}
	if !strings.HasPrefix(parsed.Scheme, KeyIDSchemePrefix) {
		return nil, fmt.Errorf("%w: scheme %q lacks the %q marker", ErrInvalidKeyID, parsed.Scheme, KeyIDSchemePrefix)
	}
	scheme := strings.TrimPrefix(parsed.Scheme, KeyIDSchemePrefix)
	if scheme == "" {
		return nil, fmt.Errorf("%w: no scheme after the %q marker", ErrInvalidKeyID, KeyIDSchemePrefix)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidKeyID)
	}

	base := *parsed
	base.Scheme = scheme
	return &base, nil
}

// ParseBaseURI parses an absolute http(s) URI used as a resource base,
// such as the Hub devices resource.
func ParseBaseURI(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URI", raw)
	}
	return parsed, nil
}

// AppendPath returns a copy of base with suffix appended to its path.
// Scheme, authority, query, and fragment are preserved. The base is
// expected to be validated already, so a result that does not parse
// back is a programming error and panics.
func AppendPath(base *url.URL, suffix string) *url.URL {
	appended := *base
	if base.User != nil {
		user := *base.User
		appended.User = &user
	}
	appended.Path = base.Path + suffix
	if base.RawPath != "" {
		appended.RawPath = base.RawPath + (&url.URL{Path: suffix}).EscapedPath()
	}
	if _, err := url.Parse(appended.String()); err != nil {
		panic(fmt.Sprintf("hubkey: cannot append %q to %s: %v", suffix, base.Redacted(), err))
	}
	return &appended
}
