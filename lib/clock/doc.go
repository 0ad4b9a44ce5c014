// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that measures or stamps time accepts a Clock instead of calling
// time.Now directly. Production wiring passes Real(); tests pass
// Fake(), whose time only moves when the test calls Advance or Set.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	started := c.Now()
//	c.Advance(150 * time.Millisecond)
//	c.Since(started) // 150ms, every run
//
// The key retrieval session only reads time (to report request
// latency), so the interface has no timers or sleeps.
package clock
