// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyunwrap turns key material received from Hub into the vault
// masterkey.
//
// Hub never sees plaintext keys. In the current protocol the device
// token carries the user's private key encrypted to the device key, and
// the user token carries the vault masterkey encrypted to the user key.
// In the legacy protocol a single token carries the masterkey encrypted
// directly to the device key. Every token is a compact JWE using
// ECDH-ES key agreement, with the payload {"key": "<base64>"}.
package keyunwrap

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwe"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/hubkey/lib/hubkey"
	"github.com/bureau-foundation/hubkey/lib/secret"
)

// Errors returned while unwrapping.
var (
	ErrUnsupportedAlgorithm = errors.New("keyunwrap: unsupported key algorithm")
	ErrDecrypt              = errors.New("keyunwrap: cannot decrypt token")
	ErrInvalidPayload       = errors.New("keyunwrap: invalid token payload")
)

// Masterkey decrypts the vault masterkey from received using the
// device's private key. The caller owns the returned buffer.
func Masterkey(received hubkey.ReceivedKey, device *ecdsa.PrivateKey) (*secret.Buffer, error) {
	switch key := received.(type) {
	case hubkey.UserAndDeviceKey:
		userKey, err := userPrivateKey(key.DeviceToken, device)
		if err != nil {
			return nil, fmt.Errorf("device token: %w", err)
		}
		masterkey, err := decryptKey(key.UserToken, userKey)
		if err != nil {
			return nil, fmt.Errorf("user token: %w", err)
		}
		return masterkey, nil
	case hubkey.LegacyDeviceKey:
		masterkey, err := decryptKey(key.Token, device)
		if err != nil {
			return nil, fmt.Errorf("legacy token: %w", err)
		}
		return masterkey, nil
	default:
		return nil, fmt.Errorf("keyunwrap: unknown received key %T", received)
	}
}

// userPrivateKey decrypts the user's P-384 key from a device token.
func userPrivateKey(token *hubkey.Token, device *ecdsa.PrivateKey) (*ecdsa.PrivateKey, error) {
	encoded, err := decryptKey(token, device)
	if err != nil {
		return nil, err
	}
	defer encoded.Close()

	parsed, err := x509.ParsePKCS8PrivateKey(encoded.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: user key: %v", ErrInvalidPayload, err)
	}
	userKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: user key is %T, want ECDSA", ErrInvalidPayload, parsed)
	}
	return userKey, nil
}

type keyPayload struct {
	// Key is base64 in JSON; encoding/json decodes it into raw bytes.
	Key []byte `json:"key"`
}

// decryptKey decrypts token with recipient and returns the payload's
// "key" member in protected memory.
func decryptKey(token *hubkey.Token, recipient *ecdsa.PrivateKey) (*secret.Buffer, error) {
	if algorithm := token.KeyAlgorithm(); algorithm != jwa.ECDH_ES.String() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	plaintext, err := jwe.Decrypt([]byte(token.Raw()), jwa.ECDH_ES, recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer secret.Zero(plaintext)

	var payload keyPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		secret.Zero(payload.Key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(payload.Key) == 0 {
		return nil, fmt.Errorf("%w: missing \"key\"", ErrInvalidPayload)
	}
	// NewFromBytes zeroes payload.Key.
	return secret.NewFromBytes(payload.Key)
}

// Fingerprint returns a short blake3 digest of a masterkey, for
// matching keys across log lines without revealing them.
func Fingerprint(masterkey *secret.Buffer) string {
	sum := blake3.Sum256(masterkey.Bytes())
	return hex.EncodeToString(sum[:8])
}
