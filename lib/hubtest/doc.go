// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hubtest provides a fake Hub server and token fixtures for
// tests of the key retrieval protocol and its consumers.
//
// [Server] answers GETs from a route table and records every request
// it sees, including the Authorization header, so tests can assert the
// exact sequence of calls a session made. Unrouted paths return 500,
// which the protocol treats as a contract violation.
//
// [Provision] builds a complete, decryptable key hierarchy for one
// device: a vault masterkey, a user key pair, the user token (masterkey
// encrypted to the user key), the device token (user private key
// encrypted to the device key), and a legacy access token (masterkey
// encrypted directly to the device key).
//
// This package must not import lib/hubkey, so that hubkey's own tests
// can use it.
package hubtest
