// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vaultconfig reads the parts of a vault configuration that a
// Hub key retrieval needs.
//
// A vault's configuration file (vault.cryptomator) is a signed JWT. Its
// header names the key the vault is locked with ("kid") and, for
// Hub-managed vaults, carries the Hub endpoints ("hub"). The signature
// is made with the vault key itself, which is exactly what a Hub
// retrieval is about to fetch, so this package reads the token without
// verifying it. Callers verify the config after unlocking.
//
// Hub settings can also be authored on disk as JSONC (JSON with
// comments and trailing commas) and loaded with [LoadHubConfigFile],
// which is useful for pointing the CLI at a staging Hub.
package vaultconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/hubkey/lib/hubkey"
)

// FileName is the conventional name of a vault configuration file.
const FileName = "vault.cryptomator"

// maxFileSize bounds how much of a config file is read. Real files are
// well under a kilobyte.
const maxFileSize = 64 << 10

// Errors returned when a config lacks what a Hub retrieval needs.
var (
	ErrMalformed        = errors.New("vaultconfig: malformed vault config")
	ErrMissingKeyID     = errors.New("vaultconfig: vault config has no key ID")
	ErrNotHubVault      = errors.New("vaultconfig: vault is not managed by Hub")
	ErrMissingHubConfig = errors.New("vaultconfig: vault config has no usable hub settings")
)

// HubConfig holds the Hub endpoints from the vault config header.
type HubConfig struct {
	ClientID           string `json:"clientId"`
	AuthEndpoint       string `json:"authEndpoint"`
	TokenEndpoint      string `json:"tokenEndpoint"`
	AuthSuccessURL     string `json:"authSuccessUrl,omitempty"`
	AuthErrorURL       string `json:"authErrorUrl,omitempty"`
	APIBaseURL         string `json:"apiBaseUrl,omitempty"`
	DevicesResourceURL string `json:"devicesResourceUrl,omitempty"`
}

// DevicesURL returns the devices resource. Older vaults name it
// directly; newer ones only carry the API base, under which devices
// live at "devices".
func (h *HubConfig) DevicesURL() (string, error) {
	if h.DevicesResourceURL != "" {
		if _, err := hubkey.ParseBaseURI(h.DevicesResourceURL); err != nil {
			return "", fmt.Errorf("%w: devicesResourceUrl: %v", ErrMissingHubConfig, err)
		}
		return h.DevicesResourceURL, nil
	}
	if h.APIBaseURL == "" {
		return "", fmt.Errorf("%w: neither devicesResourceUrl nor apiBaseUrl is set", ErrMissingHubConfig)
	}
	base, err := hubkey.ParseBaseURI(h.APIBaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: apiBaseUrl: %v", ErrMissingHubConfig, err)
	}
	trimmed := *base
	trimmed.Path = strings.TrimSuffix(trimmed.Path, "/")
	trimmed.RawPath = strings.TrimSuffix(trimmed.RawPath, "/")
	return hubkey.AppendPath(&trimmed, "/devices").String(), nil
}

// Validate checks that the settings can drive a key retrieval.
func (h *HubConfig) Validate() error {
	var errs []error
	if _, err := h.DevicesURL(); err != nil {
		errs = append(errs, err)
	}
	for name, value := range map[string]string{
		"authEndpoint":  h.AuthEndpoint,
		"tokenEndpoint": h.TokenEndpoint,
	} {
		if value == "" {
			continue
		}
		if _, err := url.Parse(value); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrMissingHubConfig, name, err))
		}
	}
	return errors.Join(errs...)
}

// VaultConfig is the unverified content of a vault configuration.
type VaultConfig struct {
	// KeyID is the "kid" header, e.g. "hub+https://hub.example/api/vaults/<id>".
	KeyID string

	// Hub is the "hub" header.
	Hub *HubConfig

	// VaultID is the "jti" claim.
	VaultID             string
	Format              int
	CipherCombo         string
	ShorteningThreshold int
}

type claims struct {
	Format              int    `json:"format"`
	CipherCombo         string `json:"cipherCombo"`
	ShorteningThreshold int    `json:"shorteningThreshold"`
	jwt.RegisteredClaims
}

// Parse reads a vault config token.
func Parse(token string) (*VaultConfig, error) {
	var body claims
	parsed, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	keyID, _ := parsed.Header["kid"].(string)
	if keyID == "" {
		return nil, ErrMissingKeyID
	}
	if !strings.HasPrefix(strings.ToLower(keyID), hubkey.KeyIDSchemePrefix) {
		return nil, fmt.Errorf("%w: key ID %q", ErrNotHubVault, keyID)
	}
	if _, err := hubkey.VaultBaseURI(keyID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	hub, err := hubHeader(parsed.Header["hub"])
	if err != nil {
		return nil, err
	}

	return &VaultConfig{
		KeyID:               keyID,
		Hub:                 hub,
		VaultID:             body.ID,
		Format:              body.Format,
		CipherCombo:         body.CipherCombo,
		ShorteningThreshold: body.ShorteningThreshold,
	}, nil
}

// hubHeader converts the decoded "hub" header back into a HubConfig.
// The JWT library hands it over as a generic map.
func hubHeader(value any) (*HubConfig, error) {
	object, ok := value.(map[string]any)
	if !ok {
		return nil, ErrMissingHubConfig
	}
	data, err := json.Marshal(object)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHubConfig, err)
	}
	var hub HubConfig
	if err := json.Unmarshal(data, &hub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingHubConfig, err)
	}
	if err := hub.Validate(); err != nil {
		return nil, err
	}
	return &hub, nil
}

// Load reads and parses the vault config at path. A directory is taken
// to be the vault root.
func Load(path string) (*VaultConfig, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// ParseHubConfig reads JSONC hub settings.
func ParseHubConfig(data []byte) (*HubConfig, error) {
	var hub HubConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &hub); err != nil {
		return nil, fmt.Errorf("parsing hub config: %w", err)
	}
	if err := hub.Validate(); err != nil {
		return nil, err
	}
	return &hub, nil
}

// LoadHubConfigFile reads JSONC hub settings from path.
func LoadHubConfigFile(path string) (*HubConfig, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	hub, err := ParseHubConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return hub, nil
}

func readLimited(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("reading %s: file exceeds %d bytes", path, maxFileSize)
	}
	return data, nil
}
