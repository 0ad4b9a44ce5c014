// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package devicekey manages the key pair that identifies this device to
// Hub.
//
// Hub encrypts device tokens (and legacy access tokens) to a device's
// P-384 public key and addresses the device by the upper-case hex
// SHA-256 of that key's PKIX encoding ([DeviceID]). The private key
// never leaves the machine: it is stored sealed with an age scrypt
// passphrase recipient inside a CBOR [Record], and is only unsealed
// when a received key has to be unwrapped.
//
// File layout (CBOR, Core Deterministic Encoding):
//
//	{1: version, 2: PKIX public key, 3: age ciphertext of the PKCS#8
//	 private key, 4: creation time (Unix seconds)}
//
// The public half can be read and the device ID computed without the
// passphrase, which is all a key retrieval session needs.
package devicekey
