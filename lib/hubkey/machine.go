// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"fmt"
	"net/http"
	"net/url"
)

// Stage is the protocol step a session is in.
type Stage int

const (
	// StageRequestingUserToken waits for GET {vault}/user-tokens/me.
	StageRequestingUserToken Stage = iota
	// StageRequestingDeviceToken waits for GET {devices}/{id}/device-token.
	StageRequestingDeviceToken
	// StageRequestingLegacyToken waits for GET {vault}/keys/{id}.
	StageRequestingLegacyToken
	// StageDone is terminal. The outcome has been resolved.
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageRequestingUserToken:
		return "requesting-user-token"
	case StageRequestingDeviceToken:
		return "requesting-device-token"
	case StageRequestingLegacyToken:
		return "requesting-legacy-token"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Resource is one of the Hub resources a session requests.
type Resource int

const (
	ResourceNone Resource = iota
	ResourceUserToken
	ResourceDeviceToken
	ResourceLegacyAccessToken
)

func (r Resource) String() string {
	switch r {
	case ResourceNone:
		return "none"
	case ResourceUserToken:
		return "user-token"
	case ResourceDeviceToken:
		return "device-token"
	case ResourceLegacyAccessToken:
		return "legacy-access-token"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// resourceFor is the resource whose response a stage waits for.
func resourceFor(stage Stage) Resource {
	switch stage {
	case StageRequestingUserToken:
		return ResourceUserToken
	case StageRequestingDeviceToken:
		return ResourceDeviceToken
	case StageRequestingLegacyToken:
		return ResourceLegacyAccessToken
	}
	return ResourceNone
}

// protocolState is everything the transition function needs. The raw
// user token is carried from the first response until the device token
// arrives, so both are parsed together.
type protocolState struct {
	stage     Stage
	userToken string
}

type eventKind int

const (
	eventResponse eventKind = iota
	eventTransportFailure
	eventCancel
)

// event is an input to the state machine: a response to a request, a
// transport failure of a request, or a cancellation.
type event struct {
	kind       eventKind
	resource   Resource
	uri        *url.URL
	statusCode int
	body       string
	err        error
}

func responseEvent(resource Resource, response *Response) event {
	return event{
		kind:       eventResponse,
		resource:   resource,
		uri:        response.URI,
		statusCode: response.StatusCode,
		body:       response.Body,
	}
}

func failureEvent(resource Resource, err error) event {
	return event{kind: eventTransportFailure, resource: resource, err: err}
}

func cancelEvent() event { return event{kind: eventCancel} }

// effect describes what the session must do after a transition: issue
// the next request, or resolve the outcome and show its screen.
type effect struct {
	request Resource
	outcome *Outcome
	screen  Screen
}

func (e effect) none() bool { return e.request == ResourceNone && e.outcome == nil }

// transition computes the next state and effect. It performs no I/O.
// Events that arrive after the session is done, or that answer a
// request the current stage is not waiting for, are dropped.
func transition(state protocolState, ev event) (protocolState, effect) {
	if state.stage == StageDone {
		return state, effect{}
	}

	switch ev.kind {
	case eventCancel:
		return finish(Resolved(OutcomeCancelled))
	case eventTransportFailure:
		if ev.resource != resourceFor(state.stage) {
			return state, effect{}
		}
		return finish(Failed(ev.err))
	case eventResponse:
		if ev.resource != resourceFor(state.stage) {
			return state, effect{}
		}
	default:
		return finish(Failed(fmt.Errorf("hubkey: unknown event kind %d", ev.kind)))
	}

	switch state.stage {
	case StageRequestingUserToken:
		switch ev.statusCode {
		case http.StatusOK:
			next := protocolState{stage: StageRequestingDeviceToken, userToken: ev.body}
			return next, effect{request: ResourceDeviceToken}
		case http.StatusPaymentRequired:
			return finish(Resolved(OutcomeLicenseExceeded))
		case http.StatusForbidden:
			return finish(Resolved(OutcomeUnauthorized))
		case http.StatusNotFound:
			next := protocolState{stage: StageRequestingLegacyToken}
			return next, effect{request: ResourceLegacyAccessToken}
		}

	case StageRequestingDeviceToken:
		switch ev.statusCode {
		case http.StatusOK:
			return finish(parseUserAndDeviceKey(state.userToken, ev.body))
		case http.StatusForbidden, http.StatusNotFound:
			return finish(Resolved(OutcomeNeedsDeviceSetup))
		}

	case StageRequestingLegacyToken:
		switch ev.statusCode {
		case http.StatusOK:
			return finish(parseLegacyDeviceKey(ev.body))
		case http.StatusPaymentRequired:
			return finish(Resolved(OutcomeLicenseExceeded))
		case http.StatusForbidden:
			return finish(Resolved(OutcomeUnauthorized))
		case http.StatusNotFound:
			return finish(Resolved(OutcomeNeedsLegacyRegistration))
		}
	}

	return finish(Failed(&StatusError{URI: ev.uri, StatusCode: ev.statusCode}))
}

func finish(outcome Outcome) (protocolState, effect) {
	return protocolState{stage: StageDone}, effect{outcome: &outcome, screen: screenFor(outcome.Kind)}
}

func parseUserAndDeviceKey(rawUserToken, rawDeviceToken string) Outcome {
	userToken, err := ParseToken(rawUserToken)
	if err != nil {
		return Failed(fmt.Errorf("parsing user token: %w", err))
	}
	deviceToken, err := ParseToken(rawDeviceToken)
	if err != nil {
		return Failed(fmt.Errorf("parsing device token: %w", err))
	}
	return Succeeded(UserAndDeviceKey{UserToken: userToken, DeviceToken: deviceToken})
}

func parseLegacyDeviceKey(rawToken string) Outcome {
	token, err := ParseToken(rawToken)
	if err != nil {
		return Failed(fmt.Errorf("parsing legacy access token: %w", err))
	}
	return Succeeded(LegacyDeviceKey{Token: token})
}
