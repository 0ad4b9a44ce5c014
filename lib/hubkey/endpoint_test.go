// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestEndpointGet(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", request.Method)
		}
		if got := request.Header.Get("Authorization"); got != "Bearer s3cr3t" {
			t.Errorf("Authorization = %q", got)
		}
		if request.URL.RawQuery != "tenant=a" {
			t.Errorf("query = %q, want tenant=a", request.URL.RawQuery)
		}
		writer.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(writer, "license exceeded")
	}))
	t.Cleanup(server.Close)

	uri, err := url.Parse(server.URL + "/api/vaults/v/user-tokens/me?tenant=a")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	response, err := NewEndpoint(server.Client(), "s3cr3t").Get(context.Background(), uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if response.StatusCode != http.StatusPaymentRequired {
		t.Errorf("StatusCode = %d, want 402", response.StatusCode)
	}
	if response.Body != "license exceeded" {
		t.Errorf("Body = %q", response.Body)
	}
	if response.URI != uri {
		t.Errorf("URI not carried through")
	}
}

func TestEndpointGetTruncatesLargeBodies(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprint(writer, strings.Repeat("a", maxBodySize+100))
	}))
	t.Cleanup(server.Close)

	uri, _ := url.Parse(server.URL)
	response, err := NewEndpoint(server.Client(), "token").Get(context.Background(), uri)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(response.Body) != maxBodySize {
		t.Errorf("body length = %d, want %d", len(response.Body), maxBodySize)
	}
}

func TestEndpointGetTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	uri, _ := url.Parse(server.URL + "/gone")
	server.Close()

	if _, err := NewEndpoint(nil, "token").Get(context.Background(), uri); err == nil {
		t.Fatal("Get against a closed server succeeded")
	}
}

func TestEndpointGetHonoursContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	}))
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uri, _ := url.Parse(server.URL)
	_, err := NewEndpoint(server.Client(), "token").Get(ctx, uri)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Get with cancelled context: %v, want context.Canceled", err)
	}
}

func TestBearerTokenIsRedacted(t *testing.T) {
	t.Parallel()

	token := BearerToken("eyJhbGciOi.secret.value")
	for _, formatted := range []string{
		fmt.Sprint(token),
		fmt.Sprintf("%v %s %#v", token, token, token),
		slog.AnyValue(token).Resolve().String(),
	} {
		if strings.Contains(formatted, "secret") {
			t.Errorf("bearer token leaked: %q", formatted)
		}
	}
}
