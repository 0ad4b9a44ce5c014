// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package devicekey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/bureau-foundation/hubkey/lib/codec"
	"github.com/bureau-foundation/hubkey/lib/secret"
)

// FormatVersion is the Record version this package writes.
const FormatVersion = 1

// DefaultWorkFactor is the scrypt log2 work factor for sealing. It is
// age's own default.
const DefaultWorkFactor = 18

// Errors returned by this package.
var (
	ErrUnsupportedVersion = errors.New("devicekey: unsupported key file version")
	ErrUnseal             = errors.New("devicekey: cannot unseal private key")
	ErrKeyMismatch        = errors.New("devicekey: private key does not match public key")
)

// Record is the on-disk form of a device key.
type Record struct {
	Version   int    `cbor:"1,keyasint"`
	PublicKey []byte `cbor:"2,keyasint"`
	Sealed    []byte `cbor:"3,keyasint"`
	CreatedAt int64  `cbor:"4,keyasint"`
}

// Generate creates a new P-384 device key.
func Generate() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("devicekey: generating P-384 key: %w", err)
	}
	return key, nil
}

// DeviceID returns the identifier Hub uses for the device owning
// publicKey.
func DeviceID(publicKey *ecdsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("devicekey: encoding public key: %w", err)
	}
	return deviceIDFromDER(der), nil
}

func deviceIDFromDER(der []byte) string {
	sum := sha256.Sum256(der)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Seal encrypts key with passphrase and returns a Record. workFactor is
// the scrypt log2 cost; zero means DefaultWorkFactor.
func Seal(key *ecdsa.PrivateKey, passphrase *secret.Buffer, workFactor int, createdAt time.Time) (*Record, error) {
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("devicekey: encoding public key: %w", err)
	}
	privateDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("devicekey: encoding private key: %w", err)
	}
	defer secret.Zero(privateDER)

	recipient, err := age.NewScryptRecipient(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("devicekey: creating scrypt recipient: %w", err)
	}
	if workFactor == 0 {
		workFactor = DefaultWorkFactor
	}
	recipient.SetWorkFactor(workFactor)

	var sealed bytes.Buffer
	writer, err := age.Encrypt(&sealed, recipient)
	if err != nil {
		return nil, fmt.Errorf("devicekey: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(privateDER); err != nil {
		return nil, fmt.Errorf("devicekey: sealing private key: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("devicekey: finalizing seal: %w", err)
	}

	return &Record{
		Version:   FormatVersion,
		PublicKey: publicDER,
		Sealed:    sealed.Bytes(),
		CreatedAt: createdAt.Unix(),
	}, nil
}

// Public parses the record's public key.
func (r *Record) Public() (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(r.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("devicekey: parsing public key: %w", err)
	}
	publicKey, ok := parsed.(*ecdsa.PublicKey)
	if !ok || publicKey.Curve != elliptic.P384() {
		return nil, fmt.Errorf("devicekey: public key is %T, want P-384 ECDSA", parsed)
	}
	return publicKey, nil
}

// DeviceID returns the Hub device ID of the record's key.
func (r *Record) DeviceID() string {
	return deviceIDFromDER(r.PublicKey)
}

// Created returns when the key was generated.
func (r *Record) Created() time.Time {
	return time.Unix(r.CreatedAt, 0).UTC()
}

// Unseal decrypts the private key with passphrase and checks that it
// belongs to the record's public key.
func (r *Record) Unseal(passphrase *secret.Buffer) (*ecdsa.PrivateKey, error) {
	publicKey, err := r.Public()
	if err != nil {
		return nil, err
	}

	identity, err := age.NewScryptIdentity(passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	reader, err := age.Decrypt(bytes.NewReader(r.Sealed), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	privateDER, err := io.ReadAll(reader)
	defer secret.Zero(privateDER)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(privateDER)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %v", ErrUnseal, err)
	}
	privateKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T", ErrUnseal, parsed)
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, ErrKeyMismatch
	}
	return privateKey, nil
}

// Save writes record to path with mode 0600, creating the parent
// directory with mode 0700. The file is replaced atomically.
func Save(path string, record *Record) error {
	data, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("devicekey: encoding record: %w", err)
	}

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("devicekey: creating %s: %w", directory, err)
	}
	temporary, err := os.CreateTemp(directory, ".device-key-*")
	if err != nil {
		return fmt.Errorf("devicekey: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0o600); err != nil {
		temporary.Close()
		return fmt.Errorf("devicekey: setting permissions: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("devicekey: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Sync(); err != nil {
		temporary.Close()
		return fmt.Errorf("devicekey: syncing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("devicekey: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("devicekey: installing %s: %w", path, err)
	}
	return nil
}

// Load reads a record from path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devicekey: %w", err)
	}
	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("devicekey: decoding %s: %w", path, err)
	}
	if record.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, record.Version)
	}
	if _, err := record.Public(); err != nil {
		return nil, err
	}
	return &record, nil
}

// Inspect returns the diagnostic notation of the key file at path.
// The sealed private key is ciphertext, so the output is safe to show.
func Inspect(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("devicekey: %w", err)
	}
	return codec.Diagnose(data)
}
