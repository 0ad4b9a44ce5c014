// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hubkey retrieves a vault key from Hub for a device that holds
// no local key material.
//
// A [Session] walks Hub's device authorization protocol with a
// short-lived bearer token:
//
//	GET {vault}/user-tokens/me            200 → device token, 404 → legacy
//	GET {devices}/{device}/device-token   200 → UserAndDeviceKey
//	GET {vault}/keys/{device}             200 → LegacyDeviceKey (Hub 1.x)
//
// 402, 403, and 404 map to outcomes that need a human: the license has
// no seats left, the device has not been granted access, or the device
// must be set up (current protocol) or registered (legacy protocol).
// Any other status, a transport failure, or a body that is not a JWE
// ends the session as failed. Nothing is retried.
//
// The {vault} base is the vault's key ID with the "hub+" scheme marker
// removed ([VaultBaseURI]); paths are appended with [AppendPath],
// which keeps query and fragment of the base.
//
// # Concurrency
//
// Requests run on an [Executor]. Their results, and cancellation, are
// funnelled into one event loop goroutine per session, which runs the
// pure transition function, calls the [Presenter], and resolves the
// [Outcome]. The outcome is resolved exactly once; responses arriving
// after resolution are dropped without side effects. [Session.Cancel]
// wins over any response the loop has not yet processed.
//
// Tokens are parsed ([ParseToken]) but not decrypted here; see
// lib/keyunwrap for turning a [ReceivedKey] into the vault masterkey.
package hubkey
