// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"errors"
	"net/url"
	"testing"

	"github.com/bureau-foundation/hubkey/lib/hubtest"
)

var testURI = &url.URL{Scheme: "https", Host: "hub.example", Path: "/api"}

func respond(resource Resource, status int, body string) event {
	return responseEvent(resource, &Response{URI: testURI, StatusCode: status, Body: body})
}

func TestTransitionUserTokenResponses(t *testing.T) {
	t.Parallel()

	start := protocolState{stage: StageRequestingUserToken}

	tests := []struct {
		status      int
		wantStage   Stage
		wantRequest Resource
		wantOutcome OutcomeKind
		wantScreen  Screen
	}{
		{200, StageRequestingDeviceToken, ResourceDeviceToken, -1, ScreenNone},
		{402, StageDone, ResourceNone, OutcomeLicenseExceeded, ScreenLicenseExceeded},
		{403, StageDone, ResourceNone, OutcomeUnauthorized, ScreenUnauthorized},
		{404, StageRequestingLegacyToken, ResourceLegacyAccessToken, -1, ScreenNone},
		{401, StageDone, ResourceNone, OutcomeFailed, ScreenNone},
		{500, StageDone, ResourceNone, OutcomeFailed, ScreenNone},
		{201, StageDone, ResourceNone, OutcomeFailed, ScreenNone},
	}
	for _, test := range tests {
		next, eff := transition(start, respond(ResourceUserToken, test.status, "body"))
		checkTransition(t, test.status, next, eff, test.wantStage, test.wantRequest, test.wantOutcome, test.wantScreen)
	}
}

func TestTransitionDeviceTokenResponses(t *testing.T) {
	t.Parallel()

	userToken := hubtest.Token(t)
	waiting := protocolState{stage: StageRequestingDeviceToken, userToken: userToken}

	tests := []struct {
		status      int
		wantOutcome OutcomeKind
		wantScreen  Screen
	}{
		{403, OutcomeNeedsDeviceSetup, ScreenSetupDevice},
		{404, OutcomeNeedsDeviceSetup, ScreenSetupDevice},
		{402, OutcomeFailed, ScreenNone},
		{500, OutcomeFailed, ScreenNone},
	}
	for _, test := range tests {
		next, eff := transition(waiting, respond(ResourceDeviceToken, test.status, ""))
		checkTransition(t, test.status, next, eff, StageDone, ResourceNone, test.wantOutcome, test.wantScreen)
	}

	deviceToken := hubtest.Token(t)
	next, eff := transition(waiting, respond(ResourceDeviceToken, 200, deviceToken))
	checkTransition(t, 200, next, eff, StageDone, ResourceNone, OutcomeSuccess, ScreenClose)
	key, ok := eff.outcome.Key.(UserAndDeviceKey)
	if !ok {
		t.Fatalf("success key = %T, want UserAndDeviceKey", eff.outcome.Key)
	}
	if key.UserToken.Raw() != userToken || key.DeviceToken.Raw() != deviceToken {
		t.Errorf("tokens were swapped or altered")
	}
	if next.userToken != "" {
		t.Errorf("terminal state still holds the user token")
	}
}

func TestTransitionLegacyTokenResponses(t *testing.T) {
	t.Parallel()

	waiting := protocolState{stage: StageRequestingLegacyToken}

	tests := []struct {
		status      int
		wantOutcome OutcomeKind
		wantScreen  Screen
	}{
		{402, OutcomeLicenseExceeded, ScreenLicenseExceeded},
		{403, OutcomeUnauthorized, ScreenUnauthorized},
		{404, OutcomeNeedsLegacyRegistration, ScreenRegisterDevice},
		{409, OutcomeFailed, ScreenNone},
	}
	for _, test := range tests {
		next, eff := transition(waiting, respond(ResourceLegacyAccessToken, test.status, ""))
		checkTransition(t, test.status, next, eff, StageDone, ResourceNone, test.wantOutcome, test.wantScreen)
	}

	legacyToken := hubtest.Token(t)
	next, eff := transition(waiting, respond(ResourceLegacyAccessToken, 200, legacyToken))
	checkTransition(t, 200, next, eff, StageDone, ResourceNone, OutcomeSuccess, ScreenClose)
	key, ok := eff.outcome.Key.(LegacyDeviceKey)
	if !ok {
		t.Fatalf("success key = %T, want LegacyDeviceKey", eff.outcome.Key)
	}
	if key.Token.Raw() != legacyToken {
		t.Errorf("legacy token altered")
	}
}

func TestTransitionUnexpectedStatusCarriesStatusError(t *testing.T) {
	t.Parallel()

	_, eff := transition(protocolState{stage: StageRequestingUserToken}, respond(ResourceUserToken, 418, ""))
	var statusError *StatusError
	if !errors.As(eff.outcome.Err, &statusError) {
		t.Fatalf("error = %v, want *StatusError", eff.outcome.Err)
	}
	if statusError.StatusCode != 418 {
		t.Errorf("StatusCode = %d, want 418", statusError.StatusCode)
	}
	if !errors.Is(eff.outcome.Err, ErrUnexpectedStatus) {
		t.Errorf("error does not wrap ErrUnexpectedStatus")
	}
}

func TestTransitionMalformedTokensFail(t *testing.T) {
	t.Parallel()

	valid := hubtest.Token(t)

	tests := []struct {
		name  string
		state protocolState
		ev    event
	}{
		{"malformed user token", protocolState{stage: StageRequestingDeviceToken, userToken: "garbage"}, respond(ResourceDeviceToken, 200, valid)},
		{"malformed device token", protocolState{stage: StageRequestingDeviceToken, userToken: valid}, respond(ResourceDeviceToken, 200, "garbage")},
		{"empty legacy token", protocolState{stage: StageRequestingLegacyToken}, respond(ResourceLegacyAccessToken, 200, "")},
	}
	for _, test := range tests {
		next, eff := transition(test.state, test.ev)
		if next.stage != StageDone || eff.outcome == nil || eff.outcome.Kind != OutcomeFailed {
			t.Errorf("%s: got stage %s, outcome %+v; want failed", test.name, next.stage, eff.outcome)
			continue
		}
		if !errors.Is(eff.outcome.Err, ErrMalformedToken) {
			t.Errorf("%s: error = %v, want ErrMalformedToken", test.name, eff.outcome.Err)
		}
	}
}

func TestTransitionTransportFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	for _, stage := range []Stage{StageRequestingUserToken, StageRequestingDeviceToken, StageRequestingLegacyToken} {
		next, eff := transition(protocolState{stage: stage}, failureEvent(resourceFor(stage), cause))
		if next.stage != StageDone || eff.outcome == nil || eff.outcome.Kind != OutcomeFailed {
			t.Errorf("%s: transport failure did not fail the session", stage)
			continue
		}
		if !errors.Is(eff.outcome.Err, cause) {
			t.Errorf("%s: error = %v, want the transport error", stage, eff.outcome.Err)
		}
	}
}

func TestTransitionCancel(t *testing.T) {
	t.Parallel()

	for _, stage := range []Stage{StageRequestingUserToken, StageRequestingDeviceToken, StageRequestingLegacyToken} {
		next, eff := transition(protocolState{stage: stage}, cancelEvent())
		checkTransition(t, 0, next, eff, StageDone, ResourceNone, OutcomeCancelled, ScreenNone)
	}
}

func TestTransitionDoneIgnoresEverything(t *testing.T) {
	t.Parallel()

	done := protocolState{stage: StageDone}
	for _, ev := range []event{
		cancelEvent(),
		respond(ResourceUserToken, 200, hubtest.Token(t)),
		respond(ResourceLegacyAccessToken, 404, ""),
		failureEvent(ResourceDeviceToken, errors.New("late")),
	} {
		next, eff := transition(done, ev)
		if next != done || !eff.none() {
			t.Errorf("event %+v changed a finished session: %+v %+v", ev.kind, next, eff)
		}
	}
}

func TestTransitionIgnoresResponsesForOtherResources(t *testing.T) {
	t.Parallel()

	waiting := protocolState{stage: StageRequestingLegacyToken}
	next, eff := transition(waiting, respond(ResourceDeviceToken, 200, hubtest.Token(t)))
	if next != waiting || !eff.none() {
		t.Errorf("device token response applied while waiting for the legacy token")
	}
}

// checkTransition asserts a transition result. wantOutcome of -1 means
// no outcome is expected.
func checkTransition(t *testing.T, status int, next protocolState, eff effect, wantStage Stage, wantRequest Resource, wantOutcome OutcomeKind, wantScreen Screen) {
	t.Helper()
	if next.stage != wantStage {
		t.Errorf("status %d: stage = %s, want %s", status, next.stage, wantStage)
	}
	if eff.request != wantRequest {
		t.Errorf("status %d: request = %s, want %s", status, eff.request, wantRequest)
	}
	if wantOutcome < 0 {
		if eff.outcome != nil {
			t.Errorf("status %d: unexpected outcome %s", status, eff.outcome.Kind)
		}
	} else if eff.outcome == nil {
		t.Errorf("status %d: no outcome, want %s", status, wantOutcome)
	} else if eff.outcome.Kind != wantOutcome {
		t.Errorf("status %d: outcome = %s, want %s", status, eff.outcome.Kind, wantOutcome)
	}
	if eff.screen != wantScreen {
		t.Errorf("status %d: screen = %d, want %d", status, eff.screen, wantScreen)
	}
}
