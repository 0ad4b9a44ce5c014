// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwe"
)

// MasterkeySize is the size of the vault masterkey Provision creates.
const MasterkeySize = 64

// Keys is a provisioned key hierarchy for one device and vault.
type Keys struct {
	Masterkey   []byte
	UserKey     *ecdsa.PrivateKey
	UserToken   string
	DeviceToken string
	LegacyToken string
}

// NewKey generates a P-384 key pair, the curve Hub uses for device and
// user keys.
func NewKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generating P-384 key: %v", err)
	}
	return key
}

// EncryptKeyPayload encrypts {"key": base64(secret)} to recipient with
// ECDH-ES and A256GCM and returns the compact JWE.
func EncryptKeyPayload(t testing.TB, recipient *ecdsa.PublicKey, secret []byte) string {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"key": base64.StdEncoding.EncodeToString(secret),
	})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return EncryptPayload(t, recipient, payload)
}

// EncryptPayload encrypts an arbitrary payload to recipient.
func EncryptPayload(t testing.TB, recipient *ecdsa.PublicKey, payload []byte) string {
	t.Helper()
	encrypted, err := jwe.Encrypt(payload, jwa.ECDH_ES, recipient, jwa.A256GCM, jwa.NoCompress)
	if err != nil {
		t.Fatalf("encrypting JWE: %v", err)
	}
	return string(encrypted)
}

// Token returns a well-formed token that nobody can decrypt. Use it
// when a test only needs something that parses.
func Token(t testing.TB) string {
	t.Helper()
	return EncryptKeyPayload(t, &NewKey(t).PublicKey, []byte("opaque"))
}

// Provision builds the key hierarchy Hub would hold for a device.
func Provision(t testing.TB, device *ecdsa.PublicKey) *Keys {
	t.Helper()

	masterkey := make([]byte, MasterkeySize)
	if _, err := rand.Read(masterkey); err != nil {
		t.Fatalf("generating masterkey: %v", err)
	}

	userKey := NewKey(t)
	userKeyDER, err := x509.MarshalPKCS8PrivateKey(userKey)
	if err != nil {
		t.Fatalf("encoding user key: %v", err)
	}

	return &Keys{
		Masterkey:   masterkey,
		UserKey:     userKey,
		UserToken:   EncryptKeyPayload(t, &userKey.PublicKey, masterkey),
		DeviceToken: EncryptKeyPayload(t, device, userKeyDER),
		LegacyToken: EncryptKeyPayload(t, device, masterkey),
	}
}
