// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Errors carried by failed outcomes.
var (
	ErrUnexpectedStatus = errors.New("hubkey: unexpected response status")
	ErrCancelled        = errors.New("hubkey: key retrieval cancelled")
)

// StatusError reports a status code Hub is not allowed to return for
// the requested resource.
type StatusError struct {
	URI        *url.URL
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: GET %s returned %d", ErrUnexpectedStatus, e.URI.Redacted(), e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// ReceivedKey is the key material delivered by Hub. It is either a
// [UserAndDeviceKey] or a [LegacyDeviceKey], never both.
type ReceivedKey interface {
	receivedKey()
}

// UserAndDeviceKey is the result of the current protocol: a user token
// holding the vault key encrypted for the user, and a device token
// holding the user key encrypted for this device.
type UserAndDeviceKey struct {
	UserToken   *Token
	DeviceToken *Token
}

// LegacyDeviceKey is the result of the legacy protocol: a single access
// token holding the vault key encrypted for this device.
type LegacyDeviceKey struct {
	Token *Token
}

func (UserAndDeviceKey) receivedKey() {}
func (LegacyDeviceKey) receivedKey()  {}

// OutcomeKind enumerates the terminal results of a session.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeNeedsDeviceSetup
	OutcomeNeedsLegacyRegistration
	OutcomeUnauthorized
	OutcomeLicenseExceeded
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNeedsDeviceSetup:
		return "needs-device-setup"
	case OutcomeNeedsLegacyRegistration:
		return "needs-legacy-registration"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeLicenseExceeded:
		return "license-exceeded"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// UserActionable reports whether the outcome asks a human to do
// something (set up or register the device, get access, fix the
// license) rather than being a success or an error.
func (k OutcomeKind) UserActionable() bool {
	switch k {
	case OutcomeNeedsDeviceSetup, OutcomeNeedsLegacyRegistration, OutcomeUnauthorized, OutcomeLicenseExceeded:
		return true
	}
	return false
}

// Outcome is the single terminal value of a session. Key is set only
// for OutcomeSuccess and Err only for OutcomeFailed.
type Outcome struct {
	Kind OutcomeKind
	Key  ReceivedKey
	Err  error
}

// Succeeded returns a success outcome carrying key.
func Succeeded(key ReceivedKey) Outcome { return Outcome{Kind: OutcomeSuccess, Key: key} }

// Failed returns a failed outcome carrying cause.
func Failed(cause error) Outcome { return Outcome{Kind: OutcomeFailed, Err: cause} }

// Resolved returns a payload-free outcome of the given kind.
func Resolved(kind OutcomeKind) Outcome { return Outcome{Kind: kind} }

// LogValue implements slog.LogValuer.
func (o Outcome) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("kind", o.Kind.String())}
	switch key := o.Key.(type) {
	case UserAndDeviceKey:
		attrs = append(attrs,
			slog.String("user_token", key.UserToken.Digest()),
			slog.String("device_token", key.DeviceToken.Digest()))
	case LegacyDeviceKey:
		attrs = append(attrs, slog.String("legacy_token", key.Token.Digest()))
	}
	if o.Err != nil {
		attrs = append(attrs, slog.String("error", o.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}
