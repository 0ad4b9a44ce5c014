// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/hubkey/cmd/hubkey/cli"
	"github.com/bureau-foundation/hubkey/lib/config"
	"github.com/bureau-foundation/hubkey/lib/devicekey"
	"github.com/bureau-foundation/hubkey/lib/hubkey"
	"github.com/bureau-foundation/hubkey/lib/keyui"
	"github.com/bureau-foundation/hubkey/lib/keyunwrap"
	"github.com/bureau-foundation/hubkey/lib/secret"
	"github.com/bureau-foundation/hubkey/lib/vaultconfig"
	"github.com/bureau-foundation/hubkey/lib/version"
)

type fetchOptions struct {
	common         commonOptions
	vault          string
	hubConfig      string
	tokenFile      string
	passphraseFile string
	output         string
	tui            bool
	unwrap         bool
}

func (a *app) fetchCommand() *cli.Command {
	var options fetchOptions
	return &cli.Command{
		Name:    "fetch",
		Summary: "Retrieve a vault key from Hub",
		Description: "Run the Hub key retrieval protocol for a vault. Without --unwrap, the\n" +
			"encrypted tokens Hub returned are printed as JSON. With --unwrap, they are\n" +
			"decrypted with the device key and the vault masterkey is written to --output.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			options.common.addFlags(flagSet)
			flagSet.StringVar(&options.vault, "vault", "", "vault directory or vault.cryptomator file (required)")
			flagSet.StringVar(&options.hubConfig, "hub-config", "", "JSONC hub settings replacing the vault's (default hub.config_file)")
			flagSet.StringVar(&options.tokenFile, "token-file", "", "file holding the Hub bearer token, - for stdin (required)")
			flagSet.StringVar(&options.passphraseFile, "passphrase-file", "", "device key passphrase file for --unwrap (default: prompt)")
			flagSet.StringVar(&options.output, "output", "", "write the unwrapped masterkey here (required with --unwrap)")
			flagSet.BoolVar(&options.tui, "tui", false, "show an interactive progress view")
			flagSet.BoolVar(&options.unwrap, "unwrap", false, "decrypt the received key with the device key")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Fetch the tokens for a vault",
				Command:     "hubkey fetch --vault ~/Vaults/Team --token-file ~/.hub-token",
			},
			{
				Description: "Fetch and unwrap the masterkey with a progress view",
				Command:     "hubkey fetch --vault ~/Vaults/Team --token-file - --tui --unwrap --output team.key",
			},
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments: %v", args)
			}
			return a.fetch(options)
		},
	}
}

func (a *app) fetch(options fetchOptions) error {
	if options.vault == "" || options.tokenFile == "" {
		return errors.New("--vault and --token-file are required")
	}
	if options.unwrap && options.output == "" {
		return errors.New("--unwrap requires --output")
	}

	cfg, logger, err := a.setup(options.common)
	if err != nil {
		return err
	}

	vaultConfig, err := vaultconfig.Load(options.vault)
	if err != nil {
		return err
	}
	hub, err := hubSettings(cfg, vaultConfig, options.hubConfig)
	if err != nil {
		return err
	}
	devicesURL := cfg.Hub.DevicesResourceURL
	if devicesURL == "" {
		if devicesURL, err = hub.DevicesURL(); err != nil {
			return err
		}
	}

	record, err := devicekey.Load(cfg.Device.KeyFile)
	if err != nil {
		return fmt.Errorf("%w (run 'hubkey device init' first)", err)
	}
	deviceID := record.DeviceID()

	bearer, err := secret.ReadFromPath(options.tokenFile)
	if err != nil {
		return fmt.Errorf("reading bearer token: %w", err)
	}
	defer bearer.Close()

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return err
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: version.UserAgent()},
	}

	uiOptions := keyui.Options{
		DeviceID: deviceID,
		HubURL:   hub.APIBaseURL,
		Vault:    vaultConfig.VaultID,
		Profile:  keyui.DetectProfile(a.stderr),
	}

	sessionConfig := hubkey.Config{
		VaultKeyID:         vaultConfig.KeyID,
		DevicesResourceURL: devicesURL,
		DeviceID:           deviceID,
		BearerToken:        hubkey.BearerToken(bearer.String()),
		HTTPClient:         httpClient,
		Logger:             logger,
		Clock:              a.clock,
	}

	var outcome hubkey.Outcome
	if options.tui {
		level, _ := cfg.LogLevel()
		tui := keyui.NewTUI(uiOptions, level)
		sessionConfig.Presenter = tui
		// The program owns the terminal; diagnostics go to its status line.
		sessionConfig.Logger = slog.New(tui.LogHandler())

		session, err := hubkey.NewSession(sessionConfig)
		if err != nil {
			return err
		}
		if outcome, err = tui.RunSession(a.ctx, session); err != nil {
			return err
		}
	} else {
		sessionConfig.Presenter = keyui.NewTerminal(a.stderr, uiOptions)
		session, err := hubkey.NewSession(sessionConfig)
		if err != nil {
			return err
		}
		outcome = session.Run(a.ctx)
	}

	switch {
	case outcome.Kind == hubkey.OutcomeSuccess:
		if options.unwrap {
			return a.unwrap(outcome.Key, record, options, logger)
		}
		return writeTokens(a.stdout, outcome.Key)
	case outcome.Kind == hubkey.OutcomeCancelled:
		return &cli.ExitError{Code: exitCancelled}
	case outcome.Kind.UserActionable():
		return &cli.ExitError{Code: exitUserAction}
	default:
		return fmt.Errorf("retrieving vault key: %w", outcome.Err)
	}
}

// hubSettings picks the hub settings: an explicit JSONC file first,
// then the configured one, then the vault config header.
func hubSettings(cfg *config.Config, vaultConfig *vaultconfig.VaultConfig, flagPath string) (*vaultconfig.HubConfig, error) {
	path := flagPath
	if path == "" {
		path = cfg.Hub.ConfigFile
	}
	if path == "" {
		return vaultConfig.Hub, nil
	}
	return vaultconfig.LoadHubConfigFile(path)
}

func (a *app) unwrap(received hubkey.ReceivedKey, record *devicekey.Record, options fetchOptions, logger *slog.Logger) error {
	passphrase, err := a.passphrase(options.passphraseFile, false)
	if err != nil {
		return err
	}
	defer passphrase.Close()

	deviceKey, err := record.Unseal(passphrase)
	if err != nil {
		return err
	}
	masterkey, err := keyunwrap.Masterkey(received, deviceKey)
	if err != nil {
		return err
	}
	defer masterkey.Close()

	if err := writePrivateFile(options.output, masterkey.Bytes()); err != nil {
		return err
	}
	logger.Info("masterkey written", "path", options.output, "fingerprint", keyunwrap.Fingerprint(masterkey))
	return nil
}

// writePrivateFile creates path with mode 0600 and writes data. An
// existing file is replaced only if it is already private.
func writePrivateFile(path string, data []byte) error {
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("refusing to write the masterkey to %s: mode %o is readable by others", path, info.Mode().Perm())
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

// receivedTokens is the JSON form of a received key. The tokens are
// encrypted to the device and user keys, so printing them is safe.
type receivedTokens struct {
	Protocol    string `json:"protocol"`
	UserToken   string `json:"user_token,omitempty"`
	DeviceToken string `json:"device_token,omitempty"`
	LegacyToken string `json:"legacy_token,omitempty"`
}

func writeTokens(w io.Writer, received hubkey.ReceivedKey) error {
	var tokens receivedTokens
	switch key := received.(type) {
	case hubkey.UserAndDeviceKey:
		tokens = receivedTokens{Protocol: "user-and-device", UserToken: key.UserToken.Raw(), DeviceToken: key.DeviceToken.Raw()}
	case hubkey.LegacyDeviceKey:
		tokens = receivedTokens{Protocol: "legacy", LegacyToken: key.Token.Raw()}
	default:
		return fmt.Errorf("unknown received key %T", received)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(tokens)
}

// userAgentTransport identifies hubkey to Hub.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	clone := request.Clone(request.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}
