// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hubkey

import (
	"errors"
	"net/url"
	"testing"
)

func TestVaultBaseURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		keyID string
		want  string
	}{
		{"https", "hub+https://vault.example/v1", "https://vault.example/v1"},
		{"http with port", "hub+http://localhost:8080/api/vaults/abc", "http://localhost:8080/api/vaults/abc"},
		{"query and fragment kept", "hub+https://vault.example/v1?tenant=a#frag", "https://vault.example/v1?tenant=a#frag"},
		{"uppercase scheme", "HUB+HTTPS://vault.example/v1", "https://vault.example/v1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			base, err := VaultBaseURI(test.keyID)
			if err != nil {
				t.Fatalf("VaultBaseURI(%q): %v", test.keyID, err)
			}
			if got := base.String(); got != test.want {
				t.Errorf("VaultBaseURI(%q) = %q, want %q", test.keyID, got, test.want)
			}
		})
	}
}

func TestVaultBaseURIRejectsInvalidKeyIDs(t *testing.T) {
	t.Parallel()

	for _, keyID := range []string{
		"",
		"https://vault.example/v1",
		"masterkeyfile:masterkey.cryptomator",
		"hub+://vault.example/v1",
		"hub+https:///no-host",
		"hub+https://vault example/v1",
	} {
		if _, err := VaultBaseURI(keyID); !errors.Is(err, ErrInvalidKeyID) {
			t.Errorf("VaultBaseURI(%q) error = %v, want ErrInvalidKeyID", keyID, err)
		}
	}
}

func TestAppendPath(t *testing.T) {
	t.Parallel()

	base, err := VaultBaseURI("hub+https://vault.example/v1")
	if err != nil {
		t.Fatalf("VaultBaseURI: %v", err)
	}
	if got := AppendPath(base, "/user-tokens/me").String(); got != "https://vault.example/v1/user-tokens/me" {
		t.Errorf("AppendPath = %q", got)
	}
	if base.String() != "https://vault.example/v1" {
		t.Errorf("AppendPath modified its base: %q", base.String())
	}
}

func TestAppendPathPreservesQueryAndFragment(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://user@vault.example:8443/v1?tenant=a&b=c#section")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	got := AppendPath(base, "/keys/DEVICE").String()
	want := "https://user@vault.example:8443/v1/keys/DEVICE?tenant=a&b=c#section"
	if got != want {
		t.Errorf("AppendPath = %q, want %q", got, want)
	}
}

func TestAppendPathKeepsEscapedBase(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://vault.example/vaults/a%2Fb")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	got := AppendPath(base, "/user-tokens/me").String()
	want := "https://vault.example/vaults/a%2Fb/user-tokens/me"
	if got != want {
		t.Errorf("AppendPath = %q, want %q", got, want)
	}
}

func TestParseBaseURI(t *testing.T) {
	t.Parallel()

	if _, err := ParseBaseURI("https://hub.example/api/devices"); err != nil {
		t.Errorf("ParseBaseURI(valid): %v", err)
	}
	for _, raw := range []string{"", "/api/devices", "hub.example/api", "https://"} {
		if _, err := ParseBaseURI(raw); err == nil {
			t.Errorf("ParseBaseURI(%q) succeeded, want error", raw)
		}
	}
}
