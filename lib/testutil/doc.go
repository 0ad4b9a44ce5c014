// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests waiting on a session's Done channel or on a
// presenter callback fail with a message instead of hanging. They are
// the only place in the test suite that uses wall-clock timeouts.
//
// [UniqueID] generates monotonically increasing identifiers (device
// IDs, vault IDs) so parallel tests never collide on a fake Hub.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
