// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/jwe"
	"github.com/zeebo/blake3"
)

// ErrMalformedToken is returned when a Hub response body is not a
// well-formed JWE compact serialization.
var ErrMalformedToken = errors.New("hubkey: malformed token")

// Token is a parsed JWE as delivered by Hub: a user token, a device
// token, or a legacy access token. Parsing checks structure only; the
// token stays encrypted until it is unwrapped with the matching key.
type Token struct {
	raw     string
	message *jwe.Message
}

// ParseToken parses the compact serialization of a JWE. Surrounding
// whitespace is ignored.
func ParseToken(raw string) (*Token, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedToken)
	}
	// Hub only issues compact tokens. The JOSE parser would also accept
	// the JSON serialization, which is never valid here.
	if strings.Count(trimmed, ".") != 4 {
		return nil, fmt.Errorf("%w: expected 5 compact segments", ErrMalformedToken)
	}
	message, err := jwe.Parse([]byte(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return &Token{raw: trimmed, message: message}, nil
}

// Raw returns the compact serialization the token was parsed from.
func (t *Token) Raw() string { return t.raw }

// KeyAlgorithm returns the "alg" protected header, e.g. "ECDH-ES".
func (t *Token) KeyAlgorithm() string {
	return t.message.ProtectedHeaders().Algorithm().String()
}

// ContentEncryption returns the "enc" protected header, e.g. "A256GCM".
func (t *Token) ContentEncryption() string {
	return t.message.ProtectedHeaders().ContentEncryption().String()
}

// KeyID returns the "kid" protected header, or "" if absent.
func (t *Token) KeyID() string {
	return t.message.ProtectedHeaders().KeyID()
}

// Digest returns a short blake3 fingerprint of the raw token. It is
// safe to log and lets operators correlate a token across components
// without exposing it.
func (t *Token) Digest() string {
	sum := blake3.Sum256([]byte(t.raw))
	return hex.EncodeToString(sum[:8])
}
