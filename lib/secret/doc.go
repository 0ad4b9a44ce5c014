// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds credentials and key material in memory the Go
// runtime never sees.
//
// A [Buffer] is an anonymous mmap region that is mlocked (never
// swapped) and marked MADV_DONTDUMP (never in a core file). Close
// zeroes, unlocks, and unmaps it. The hubkey CLI keeps the Hub bearer
// token, the device key passphrase, and an unwrapped vault masterkey
// in Buffers for as long as it needs them.
//
// Input helpers:
//
//   - [ReadFromPath] -- a file, or stdin for "-", whitespace-trimmed
//   - [Prompt] -- a terminal prompt with echo disabled
//
// Access via [Buffer.Bytes] (a slice into the mapping) or
// [Buffer.String] (a heap copy, for API boundaries that need one).
// Reading a closed Buffer panics.
package secret
