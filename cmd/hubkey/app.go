// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hubkey/cmd/hubkey/cli"
	"github.com/bureau-foundation/hubkey/lib/clock"
	"github.com/bureau-foundation/hubkey/lib/config"
	"github.com/bureau-foundation/hubkey/lib/secret"
	"github.com/bureau-foundation/hubkey/lib/version"
)

// Exit codes beyond 0 and 1.
const (
	exitUserAction = 2
	exitCancelled  = 130
)

// app holds the process environment commands run in.
type app struct {
	ctx    context.Context
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
	clock  clock.Clock
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:        "hubkey",
		Description: "Retrieve vault keys from Hub for this device.",
		Output:      a.stderr,
		Subcommands: []*cli.Command{
			a.deviceCommand(),
			a.fetchCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					fmt.Fprintf(a.stdout, "hubkey %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// commonOptions are the flags every working command accepts.
type commonOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	keyFile    string
}

func (o *commonOptions) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.configPath, "config", "", "config file (default $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.StringVar(&o.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flagSet.StringVar(&o.logFormat, "log-format", "", "override log.format (auto, text, json)")
	flagSet.StringVar(&o.keyFile, "key-file", "", "override device.key_file")
}

// setup loads and validates the config with flag overrides applied and
// builds the logger.
func (a *app) setup(options commonOptions) (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	var err error
	if options.configPath != "" {
		cfg, err = config.LoadFile(options.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	if options.logLevel != "" {
		cfg.Log.Level = options.logLevel
	}
	if options.logFormat != "" {
		cfg.Log.Format = options.logFormat
	}
	if options.keyFile != "" {
		cfg.Device.KeyFile = options.keyFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.NewLogger(a.stderr, cfg.Log.Format, level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// passphrase reads the device key passphrase from path, or prompts on
// the terminal. confirm asks twice, for new keys.
func (a *app) passphrase(path string, confirm bool) (*secret.Buffer, error) {
	if path != "" {
		buffer, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return buffer, nil
	}

	first, err := secret.Prompt("Device key passphrase: ", a.stdin, a.stderr)
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w (use --passphrase-file when not on a terminal)", err)
	}
	if !confirm {
		return first, nil
	}
	second, err := secret.Prompt("Repeat passphrase: ", a.stdin, a.stderr)
	if err != nil {
		first.Close()
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	defer second.Close()
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		first.Close()
		return nil, errors.New("passphrases do not match")
	}
	return first, nil
}
