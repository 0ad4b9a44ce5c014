// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

// Presenter performs the visible action for a resolved session. Each
// method corresponds to one screen. The session calls at most one
// method, once, from its event loop goroutine.
type Presenter interface {
	// ShowSetupDevice asks the user to set up this device in Hub.
	ShowSetupDevice()

	// ShowRegisterDevice asks the user to register this device with a
	// legacy Hub.
	ShowRegisterDevice()

	// ShowUnauthorized tells the user their device has not been granted
	// access to the vault.
	ShowUnauthorized()

	// ShowLicenseExceeded tells the user the Hub license has no seats
	// left.
	ShowLicenseExceeded()

	// Close dismisses the interaction after the key was received.
	Close()
}

// Screen identifies the presenter action a transition requires.
type Screen int

const (
	ScreenNone Screen = iota
	ScreenSetupDevice
	ScreenRegisterDevice
	ScreenUnauthorized
	ScreenLicenseExceeded
	ScreenClose
)

// screenFor maps an outcome to the screen that presents it. Cancelled
// and failed sessions have no screen: cancellation comes from the
// presenter side, and failures are reported to the caller.
func screenFor(kind OutcomeKind) Screen {
	switch kind {
	case OutcomeSuccess:
		return ScreenClose
	case OutcomeNeedsDeviceSetup:
		return ScreenSetupDevice
	case OutcomeNeedsLegacyRegistration:
		return ScreenRegisterDevice
	case OutcomeUnauthorized:
		return ScreenUnauthorized
	case OutcomeLicenseExceeded:
		return ScreenLicenseExceeded
	}
	return ScreenNone
}

// present applies screen to presenter. A nil presenter ignores it.
func present(presenter Presenter, screen Screen) {
	if presenter == nil {
		return
	}
	switch screen {
	case ScreenSetupDevice:
		presenter.ShowSetupDevice()
	case ScreenRegisterDevice:
		presenter.ShowRegisterDevice()
	case ScreenUnauthorized:
		presenter.ShowUnauthorized()
	case ScreenLicenseExceeded:
		presenter.ShowLicenseExceeded()
	case ScreenClose:
		presenter.Close()
	}
}
