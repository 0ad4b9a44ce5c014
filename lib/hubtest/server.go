// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubtest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Response is a canned reply for one path.
type Response struct {
	Status int
	Body   string
}

// Request is what the fake Hub recorded about one request.
type Request struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
}

// Server is a fake Hub.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]Response
	requests []Request
	observer func(Request)
}

// NewServer starts a fake Hub that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	hub := &Server{routes: make(map[string]Response)}
	hub.Server = httptest.NewServer(http.HandlerFunc(hub.serve))
	t.Cleanup(hub.Server.Close)
	return hub
}

// Respond routes GET path to a fixed status and body.
func (s *Server) Respond(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = Response{Status: status, Body: body}
}

// OnRequest registers a callback invoked for every request before it is
// answered, on the server's handler goroutine.
func (s *Server) OnRequest(observer func(Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = observer
}

// Requests returns a copy of the requests seen so far, in arrival
// order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Paths returns the paths of the requests seen so far.
func (s *Server) Paths() []string {
	var paths []string
	for _, request := range s.Requests() {
		paths = append(paths, request.Path)
	}
	return paths
}

// VaultKeyID returns a "hub+http://..." key ID for vaultID on this
// server, as stored in a vault config.
func (s *Server) VaultKeyID(vaultID string) string {
	return "hub+" + s.URL + VaultPath(vaultID)
}

// DevicesURL returns the devices resource URL of this server.
func (s *Server) DevicesURL() string {
	return s.URL + "/api/devices"
}

// VaultPath is the path of a vault's resources.
func VaultPath(vaultID string) string {
	return "/api/vaults/" + vaultID
}

// UserTokenPath is the path of the current-protocol user token.
func UserTokenPath(vaultID string) string {
	return VaultPath(vaultID) + "/user-tokens/me"
}

// DeviceTokenPath is the path of a device's token.
func DeviceTokenPath(deviceID string) string {
	return "/api/devices/" + deviceID + "/device-token"
}

// LegacyTokenPath is the path of a legacy access token.
func LegacyTokenPath(vaultID, deviceID string) string {
	return VaultPath(vaultID) + "/keys/" + deviceID
}

func (s *Server) serve(writer http.ResponseWriter, request *http.Request) {
	recorded := Request{
		Method:        request.Method,
		Path:          request.URL.Path,
		RawQuery:      request.URL.RawQuery,
		Authorization: request.Header.Get("Authorization"),
	}

	s.mu.Lock()
	s.requests = append(s.requests, recorded)
	response, routed := s.routes[request.URL.Path]
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(recorded)
	}

	if request.Method != http.MethodGet {
		http.Error(writer, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !routed {
		http.Error(writer, "no route for "+request.URL.Path, http.StatusInternalServerError)
		return
	}
	if !strings.HasPrefix(recorded.Authorization, "Bearer ") {
		http.Error(writer, "missing bearer token", http.StatusUnauthorized)
		return
	}

	writer.Header().Set("Content-Type", "text/plain; charset=us-ascii")
	writer.WriteHeader(response.Status)
	writer.Write([]byte(response.Body))
}
