// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// maxSecretSize bounds secrets read from files and pipes. Hub bearer
// tokens are a few kilobytes.
const maxSecretSize = 64 << 10

// ErrEmpty is returned when a secret source holds only whitespace.
var ErrEmpty = errors.New("secret: empty")

// ReadFromPath reads a secret from a file, or from the first line of
// stdin when path is "-". Surrounding whitespace is trimmed.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFrom(file)
}

// ReadFrom reads a whole secret from reader and trims surrounding
// whitespace.
func ReadFrom(reader io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxSecretSize+1))
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("secret: reading: %w", err)
	}
	if len(data) > maxSecretSize {
		return nil, fmt.Errorf("secret: larger than %d bytes", maxSecretSize)
	}
	return protectTrimmed(data)
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 4096), maxSecretSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading stdin: %w", err)
		}
		return nil, ErrEmpty
	}
	line := scanner.Bytes()
	defer Zero(line)
	return protectTrimmed(line)
}

// Prompt writes label to output and reads one line from the terminal
// on input with echo disabled.
func Prompt(label string, input *os.File, output io.Writer) (*Buffer, error) {
	descriptor := int(input.Fd())
	if !term.IsTerminal(descriptor) {
		return nil, errors.New("secret: no terminal to prompt on")
	}
	fmt.Fprint(output, label)
	data, err := term.ReadPassword(descriptor)
	fmt.Fprintln(output)
	defer Zero(data)
	if err != nil {
		return nil, fmt.Errorf("secret: reading from terminal: %w", err)
	}
	return protectTrimmed(data)
}

func protectTrimmed(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}
	return NewFromBytes(trimmed)
}
