// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devicekey

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/hubkey/lib/codec"
	"github.com/bureau-foundation/hubkey/lib/secret"
)

// testWorkFactor keeps scrypt fast in tests.
const testWorkFactor = 10

var createdAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func passphrase(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func sealedRecord(t *testing.T) *Record {
	t.Helper()
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	record, err := Seal(key, passphrase(t, "correct horse"), testWorkFactor, createdAt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return record
}

func TestDeviceIDFormat(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	id, err := DeviceID(&key.PublicKey)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if !regexp.MustCompile(`^[0-9A-F]{64}$`).MatchString(id) {
		t.Fatalf("DeviceID = %q, want 64 upper-case hex digits", id)
	}

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	sum := sha256.Sum256(der)
	if want := strings.ToUpper(hex.EncodeToString(sum[:])); id != want {
		t.Errorf("DeviceID = %q, want %q", id, want)
	}
}

func TestSealUnsealRoundTrip(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	record, err := Seal(key, passphrase(t, "correct horse"), testWorkFactor, createdAt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if record.Version != FormatVersion {
		t.Errorf("Version = %d, want %d", record.Version, FormatVersion)
	}
	if !record.Created().Equal(createdAt) {
		t.Errorf("Created() = %v, want %v", record.Created(), createdAt)
	}
	wantID, _ := DeviceID(&key.PublicKey)
	if record.DeviceID() != wantID {
		t.Errorf("record DeviceID = %q, want %q", record.DeviceID(), wantID)
	}

	unsealed, err := record.Unseal(passphrase(t, "correct horse"))
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if !unsealed.Equal(key) {
		t.Error("unsealed key differs from the generated key")
	}
}

func TestSealedBytesAreNotPlaintext(t *testing.T) {
	key, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	record, err := Seal(key, passphrase(t, "pw"), testWorkFactor, createdAt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if strings.Contains(string(record.Sealed), string(privateDER)) {
		t.Fatal("sealed record contains the plaintext private key")
	}
}

func TestUnsealWrongPassphrase(t *testing.T) {
	record := sealedRecord(t)
	_, err := record.Unseal(passphrase(t, "battery staple"))
	if !errors.Is(err, ErrUnseal) {
		t.Fatalf("Unseal with wrong passphrase: err = %v, want ErrUnseal", err)
	}
}

func TestUnsealDetectsSwappedPublicKey(t *testing.T) {
	record := sealedRecord(t)
	other := sealedRecord(t)
	record.PublicKey = other.PublicKey

	_, err := record.Unseal(passphrase(t, "correct horse"))
	if !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("err = %v, want ErrKeyMismatch", err)
	}
}

func TestSaveLoad(t *testing.T) {
	record := sealedRecord(t)
	path := filepath.Join(t.TempDir(), "keys", "device.key")

	if err := Save(path, record); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("file mode = %o, want 600", mode)
	}
	directoryInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Stat directory: %v", err)
	}
	if mode := directoryInfo.Mode().Perm(); mode != 0o700 {
		t.Errorf("directory mode = %o, want 700", mode)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DeviceID() != record.DeviceID() {
		t.Errorf("loaded DeviceID = %q, want %q", loaded.DeviceID(), record.DeviceID())
	}
	if _, err := loaded.Unseal(passphrase(t, "correct horse")); err != nil {
		t.Fatalf("Unseal after Load: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the key file", len(entries))
	}
}

func TestSaveReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")
	first := sealedRecord(t)
	second := sealedRecord(t)

	if err := Save(path, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := Save(path, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DeviceID() != second.DeviceID() {
		t.Error("Load returned the replaced record")
	}
}

func TestLoadErrors(t *testing.T) {
	directory := t.TempDir()

	if _, err := Load(filepath.Join(directory, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want ErrNotExist", err)
	}

	garbage := filepath.Join(directory, "garbage")
	if err := os.WriteFile(garbage, []byte("not cbor"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbage); err == nil {
		t.Error("Load(garbage) succeeded")
	}

	record := sealedRecord(t)
	record.Version = 99
	data, err := codec.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	future := filepath.Join(directory, "future")
	if err := os.WriteFile(future, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(future); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("future version: err = %v, want ErrUnsupportedVersion", err)
	}

	record = sealedRecord(t)
	record.PublicKey = []byte{0x30, 0x00}
	data, err = codec.Marshal(record)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	broken := filepath.Join(directory, "broken")
	if err := os.WriteFile(broken, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Error("Load with an unparseable public key succeeded")
	}
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")
	if err := Save(path, sealedRecord(t)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	diagnostic, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !strings.HasPrefix(diagnostic, "{1: 1, 2: h'") {
		t.Errorf("Inspect = %q, want a map starting with the version", diagnostic)
	}
}
