// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  eyJhbGciOi.token \n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "eyJhbGciOi.token" {
		t.Errorf("secret = %q, want trimmed token", got)
	}
}

func TestReadFromPathMissingFile(t *testing.T) {
	_, err := ReadFromPath(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want ErrNotExist", err)
	}
}

func TestReadFromWhitespaceOnly(t *testing.T) {
	if _, err := ReadFrom(strings.NewReader(" \n\t ")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("error = %v, want ErrEmpty", err)
	}
}

func TestReadFromTooLarge(t *testing.T) {
	if _, err := ReadFrom(strings.NewReader(strings.Repeat("x", maxSecretSize+1))); err == nil {
		t.Fatal("oversized secret accepted")
	}
}

func TestReadLineTakesFirstLine(t *testing.T) {
	buffer, err := readLine(strings.NewReader("first-line\nsecond-line\n"))
	if err != nil {
		t.Fatalf("readLine: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "first-line" {
		t.Errorf("secret = %q, want first-line", got)
	}
}

func TestPromptRequiresTerminal(t *testing.T) {
	file, err := os.Open(filepath.Join(t.TempDir()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	var output strings.Builder
	if _, err := Prompt("Passphrase: ", file, &output); err == nil {
		t.Fatal("Prompt on a non-terminal succeeded")
	}
	if output.Len() != 0 {
		t.Errorf("prompt written although no terminal: %q", output.String())
	}
}
