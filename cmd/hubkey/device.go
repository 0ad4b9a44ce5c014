// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hubkey/cmd/hubkey/cli"
	"github.com/bureau-foundation/hubkey/lib/devicekey"
)

func (a *app) deviceCommand() *cli.Command {
	return &cli.Command{
		Name:    "device",
		Summary: "Manage this device's key pair",
		Subcommands: []*cli.Command{
			a.deviceInitCommand(),
			a.deviceIDCommand(),
			a.deviceShowCommand(),
		},
	}
}

func (a *app) deviceInitCommand() *cli.Command {
	var (
		common         commonOptions
		passphraseFile string
		force          bool
	)
	return &cli.Command{
		Name:    "init",
		Summary: "Generate and seal a new device key",
		Description: "Generate a P-384 device key pair, seal the private key with a passphrase,\n" +
			"and print the device ID and public key to register with Hub.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("init", pflag.ContinueOnError)
			common.addFlags(flagSet)
			flagSet.StringVar(&passphraseFile, "passphrase-file", "", "read the passphrase from a file (- for stdin) instead of prompting")
			flagSet.BoolVar(&force, "force", false, "replace an existing device key")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Create the device key interactively", Command: "hubkey device init"},
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			cfg, logger, err := a.setup(common)
			if err != nil {
				return err
			}

			path := cfg.Device.KeyFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to replace it)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			key, err := devicekey.Generate()
			if err != nil {
				return err
			}
			passphrase, err := a.passphrase(passphraseFile, true)
			if err != nil {
				return err
			}
			defer passphrase.Close()

			record, err := devicekey.Seal(key, passphrase, cfg.Device.WorkFactor, a.clock.Now())
			if err != nil {
				return err
			}
			if err := devicekey.Save(path, record); err != nil {
				return err
			}
			logger.Info("device key created", "path", path, "device_id", record.DeviceID())

			fmt.Fprintln(a.stdout, record.DeviceID())
			return pem.Encode(a.stdout, &pem.Block{Type: "PUBLIC KEY", Bytes: record.PublicKey})
		},
	}
}

func (a *app) deviceIDCommand() *cli.Command {
	var common commonOptions
	return &cli.Command{
		Name:    "id",
		Summary: "Print the device ID",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("id", pflag.ContinueOnError)
			common.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			cfg, _, err := a.setup(common)
			if err != nil {
				return err
			}
			record, err := devicekey.Load(cfg.Device.KeyFile)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, record.DeviceID())
			return nil
		},
	}
}

func (a *app) deviceShowCommand() *cli.Command {
	var common commonOptions
	return &cli.Command{
		Name:    "show",
		Summary: "Describe the device key file",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			common.addFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			cfg, _, err := a.setup(common)
			if err != nil {
				return err
			}
			record, err := devicekey.Load(cfg.Device.KeyFile)
			if err != nil {
				return err
			}
			diagnostic, err := devicekey.Inspect(cfg.Device.KeyFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "path:      %s\n", cfg.Device.KeyFile)
			fmt.Fprintf(a.stdout, "device id: %s\n", record.DeviceID())
			fmt.Fprintf(a.stdout, "created:   %s\n", record.Created().Format("2006-01-02T15:04:05Z"))
			fmt.Fprintf(a.stdout, "record:    %s\n", diagnostic)
			return nil
		},
	}
}
