// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR configuration for hubkey's on-disk records.
//
// Hub speaks JSON and JWE; nothing here goes over the wire. CBOR is
// used for local state, today the sealed device key file, where a
// compact, deterministic, binary-safe encoding beats JSON with base64
// blobs. Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so
// the same record always produces the same bytes. Decoding rejects
// duplicate map keys, which have no legitimate use in a key file.
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// [Diagnose] renders a record in diagnostic notation for debugging.
package codec
