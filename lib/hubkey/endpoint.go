// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// maxBodySize bounds how much of a Hub response body is read. Tokens
// are a few kilobytes; anything larger is truncated and will fail to
// parse.
const maxBodySize = 1 << 20

// BearerToken is the short-lived credential presented to Hub on every
// request. It redacts itself in every formatting path so it cannot end
// up in logs by accident.
type BearerToken string

func (BearerToken) String() string   { return "[REDACTED]" }
func (BearerToken) GoString() string { return "[REDACTED]" }

// LogValue implements slog.LogValuer.
func (BearerToken) LogValue() slog.Value { return slog.StringValue("[REDACTED]") }

// Response is the status code and text body of a Hub GET.
type Response struct {
	URI        *url.URL
	StatusCode int
	Body       string
}

// Endpoint issues authenticated GET requests against Hub resources.
// Transport configuration (timeouts, proxies, TLS) belongs to the
// injected http.Client.
type Endpoint struct {
	httpClient *http.Client
	bearer     BearerToken
}

// NewEndpoint creates an Endpoint. A nil client means
// http.DefaultClient.
func NewEndpoint(httpClient *http.Client, bearer BearerToken) *Endpoint {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Endpoint{httpClient: httpClient, bearer: bearer}
}

// Get requests uri with the bearer credential. A non-2xx status is not
// an error: the status code is the protocol, and the caller interprets
// it. Connection failures, timeouts, and context cancellation are
// returned as errors.
func (e *Endpoint) Get(ctx context.Context, uri *url.URL) (*Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", uri.Redacted(), err)
	}
	request.Header.Set("Authorization", "Bearer "+string(e.bearer))

	response, err := e.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", uri.Redacted(), err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", uri.Redacted(), err)
	}

	return &Response{
		URI:        uri,
		StatusCode: response.StatusCode,
		Body:       string(body),
	}, nil
}
