// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/hubkey/lib/clock"
)

// Executor runs a request task. Tasks must run asynchronously with
// respect to the caller: the session's event loop submits them and
// then waits for their result.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) { f(task) }

// GoExecutor runs every task on a new goroutine.
var GoExecutor Executor = ExecutorFunc(func(task func()) { go task() })

// Identity is the immutable identity a session acts for.
type Identity struct {
	// VaultBaseURI is the vault's Hub base, derived from its key ID.
	VaultBaseURI *url.URL

	// DevicesBaseURI is the Hub devices resource.
	DevicesBaseURI *url.URL

	// DeviceID identifies this device to Hub.
	DeviceID string

	// BearerToken authorizes every request.
	BearerToken BearerToken
}

// Config holds the inputs of NewSession.
type Config struct {
	// VaultKeyID is the vault's "hub+https://..." key ID. Required.
	VaultKeyID string

	// DevicesResourceURL is the absolute URL of Hub's devices
	// resource. Required.
	DevicesResourceURL string

	// DeviceID and BearerToken are required.
	DeviceID    string
	BearerToken BearerToken

	// HTTPClient carries transport policy. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// Executor runs requests. Nil means GoExecutor.
	Executor Executor

	// Presenter shows the screen for the outcome. May be nil.
	Presenter Presenter

	// Logger receives protocol diagnostics. Nil discards them.
	Logger *slog.Logger

	// Clock times requests. Nil means clock.Real().
	Clock clock.Clock
}

// Session runs one key retrieval attempt. Create with NewSession, call
// Start exactly once, and wait on Done, Wait, or Run.
//
// All protocol state is owned by a single event loop goroutine. Request
// results and cancellation are delivered to that loop, which applies
// the transition, resolves the outcome, and calls the presenter. The
// outcome is resolved exactly once; anything arriving afterwards is
// dropped.
type Session struct {
	identity  Identity
	endpoint  *Endpoint
	executor  Executor
	presenter Presenter
	logger    *slog.Logger
	clock     clock.Clock

	started atomic.Bool

	events   chan event
	loopDone chan struct{}

	cancelOnce      sync.Once
	cancelRequested chan struct{}

	requestContext context.Context
	stopRequests   context.CancelFunc

	outcome outcomeCell

	// Owned by the event loop.
	state          protocolState
	requestStarted time.Time
}

// NewSession validates config and creates a session. An invalid vault
// key ID or devices URL aborts creation.
func NewSession(config Config) (*Session, error) {
	vaultBase, err := VaultBaseURI(config.VaultKeyID)
	if err != nil {
		return nil, err
	}
	devicesBase, err := ParseBaseURI(config.DevicesResourceURL)
	if err != nil {
		return nil, fmt.Errorf("hubkey: invalid devices resource URL: %w", err)
	}
	if config.DeviceID == "" {
		return nil, errors.New("hubkey: device ID is required")
	}
	if config.BearerToken == "" {
		return nil, errors.New("hubkey: bearer token is required")
	}

	executor := config.Executor
	if executor == nil {
		executor = GoExecutor
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sessionClock := config.Clock
	if sessionClock == nil {
		sessionClock = clock.Real()
	}

	requestContext, stopRequests := context.WithCancel(context.Background())

	return &Session{
		identity: Identity{
			VaultBaseURI:   vaultBase,
			DevicesBaseURI: devicesBase,
			DeviceID:       config.DeviceID,
			BearerToken:    config.BearerToken,
		},
		endpoint:        NewEndpoint(config.HTTPClient, config.BearerToken),
		executor:        executor,
		presenter:       config.Presenter,
		logger:          logger.With("device_id", config.DeviceID, "vault", vaultBase.Redacted()),
		clock:           sessionClock,
		events:          make(chan event),
		loopDone:        make(chan struct{}),
		cancelRequested: make(chan struct{}),
		requestContext:  requestContext,
		stopRequests:    stopRequests,
		outcome:         outcomeCell{done: make(chan struct{})},
		state:           protocolState{stage: StageRequestingUserToken},
	}, nil
}

// Identity returns the session's identity.
func (s *Session) Identity() Identity { return s.identity }

// Start begins the protocol by requesting the user token. It must be
// called exactly once; a second call panics. Cancelling ctx cancels
// the session.
func (s *Session) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		panic("hubkey: Session.Start called twice")
	}
	stopWatching := context.AfterFunc(ctx, s.Cancel)
	go s.run(stopWatching)
}

// Cancel resolves the session as cancelled unless it already resolved,
// and aborts any in-flight request. Safe to call from any goroutine,
// any number of times, before or after Start. When called before
// Start, the session resolves as soon as Start is called and issues no
// requests.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancelRequested)
		// Closed before aborting requests, so the loop can tell an
		// aborted request from a genuine transport failure.
		s.stopRequests()
	})
}

// Done is closed once the outcome is resolved.
func (s *Session) Done() <-chan struct{} { return s.outcome.done }

// Outcome returns the outcome and true once resolved.
func (s *Session) Outcome() (Outcome, bool) {
	select {
	case <-s.outcome.done:
		return s.outcome.value, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the outcome is resolved or ctx is done. Giving up
// on ctx does not cancel the session.
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.outcome.done:
		return s.outcome.value, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run starts the session and waits for its outcome. Cancelling ctx
// cancels the session, which then resolves as cancelled.
func (s *Session) Run(ctx context.Context) Outcome {
	s.Start(ctx)
	<-s.outcome.done
	return s.outcome.value
}

func (s *Session) run(stopWatching func() bool) {
	defer stopWatching()
	defer s.stopRequests()
	defer close(s.loopDone)

	if s.cancelWasRequested() {
		s.handle(cancelEvent())
	} else {
		s.issue(ResourceUserToken)
	}

	for s.state.stage != StageDone {
		select {
		case <-s.cancelRequested:
			s.handle(cancelEvent())
		case ev := <-s.events:
			// A cancel that happened before this event was picked up
			// wins, whatever the event says.
			if s.cancelWasRequested() {
				ev = cancelEvent()
			}
			s.handle(ev)
		}
	}
}

func (s *Session) cancelWasRequested() bool {
	select {
	case <-s.cancelRequested:
		return true
	default:
		return false
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case eventResponse:
		s.logger.Debug("hub response",
			"resource", ev.resource.String(),
			"uri", ev.uri.Redacted(),
			"status", ev.statusCode,
			"elapsed", s.clock.Since(s.requestStarted))
	case eventTransportFailure:
		s.logger.Debug("hub request failed",
			"resource", ev.resource.String(),
			"error", ev.err,
			"elapsed", s.clock.Since(s.requestStarted))
	}

	next, eff := transition(s.state, ev)
	if eff.none() && next == s.state {
		s.logger.Debug("event dropped", "stage", s.state.stage.String(), "resource", ev.resource.String())
		return
	}
	s.state = next
	s.apply(eff)
}

func (s *Session) apply(eff effect) {
	if eff.request != ResourceNone {
		s.issue(eff.request)
	}
	if eff.outcome == nil {
		return
	}
	if eff.outcome.Kind == OutcomeFailed {
		s.logger.Warn("key retrieval failed", "outcome", *eff.outcome)
	} else {
		s.logger.Info("key retrieval finished", "outcome", *eff.outcome)
	}
	// The screen is shown before the outcome is published, so whoever
	// waits on Done observes a presenter that has already been told.
	// Only this loop resolves, so the resolve below cannot lose.
	present(s.presenter, eff.screen)
	s.outcome.resolve(*eff.outcome)
}

// issue submits the request for resource to the executor. The result
// is handed back to the event loop, or dropped if the loop is gone.
func (s *Session) issue(resource Resource) {
	uri := s.uriFor(resource)
	s.requestStarted = s.clock.Now()
	s.logger.Debug("hub request", "resource", resource.String(), "uri", uri.Redacted())

	requestContext := s.requestContext
	s.executor.Execute(func() {
		var ev event
		response, err := s.endpoint.Get(requestContext, uri)
		if err != nil {
			ev = failureEvent(resource, err)
		} else {
			ev = responseEvent(resource, response)
		}
		select {
		case s.events <- ev:
		case <-s.loopDone:
		}
	})
}

func (s *Session) uriFor(resource Resource) *url.URL {
	deviceID := s.identity.DeviceID
	switch resource {
	case ResourceUserToken:
		return AppendPath(s.identity.VaultBaseURI, "/user-tokens/me")
	case ResourceDeviceToken:
		return AppendPath(s.identity.DevicesBaseURI, "/"+deviceID+"/device-token")
	case ResourceLegacyAccessToken:
		return AppendPath(s.identity.VaultBaseURI, "/keys/"+deviceID)
	}
	panic(fmt.Sprintf("hubkey: no URI for resource %s", resource))
}

// outcomeCell is a single-assignment outcome. The first resolve wins.
type outcomeCell struct {
	once  sync.Once
	done  chan struct{}
	value Outcome
}

func (c *outcomeCell) resolve(outcome Outcome) bool {
	resolved := false
	c.once.Do(func() {
		c.value = outcome
		resolved = true
		close(c.done)
	})
	return resolved
}
