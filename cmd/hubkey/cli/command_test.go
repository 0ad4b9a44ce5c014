// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "hubkey",
		Subcommands: []*Command{
			{Name: "version", Run: func(args []string) error { called = "version"; return nil }},
			{Name: "fetch", Run: func(args []string) error { called = "fetch"; return nil }},
		},
	}

	if err := root.Execute([]string{"fetch"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "fetch" {
		t.Errorf("dispatched to %q, want %q", called, "fetch")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "hubkey",
		Subcommands: []*Command{
			{
				Name: "device",
				Subcommands: []*Command{
					{
						Name: "init",
						Run: func(args []string) error {
							called = "device init"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"device", "init", "extra-arg"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "device init" {
		t.Errorf("dispatched to %q, want %q", called, "device init")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra-arg" {
		t.Errorf("args = %v, want [extra-arg]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var vault string
	var tui bool

	command := &Command{
		Name: "fetch",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			flagSet.StringVar(&vault, "vault", "", "vault path")
			flagSet.BoolVar(&tui, "tui", false, "interactive view")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				t.Errorf("positional args = %v", args)
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--vault", "/vaults/team", "--tui"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if vault != "/vaults/team" || !tui {
		t.Errorf("vault=%q tui=%v", vault, tui)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name: "hubkey",
		Subcommands: []*Command{
			{Name: "fetch", Run: func([]string) error { return nil }},
			{Name: "device", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"fecth"})
	if err == nil {
		t.Fatal("unknown command accepted")
	}
	if !strings.Contains(err.Error(), `did you mean "fetch"`) {
		t.Errorf("error = %q, want a suggestion", err)
	}

	err = root.Execute([]string{"completely-different"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "fetch",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			flagSet.String("token-file", "", "bearer token file")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--token-fil", "x"})
	if err == nil {
		t.Fatal("unknown flag accepted")
	}
	if !strings.Contains(err.Error(), "did you mean --token-file") {
		t.Errorf("error = %q, want a suggestion", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:   "hubkey",
		Output: &help,
		Subcommands: []*Command{
			{Name: "device", Summary: "Manage the device key", Run: func([]string) error { return nil }},
		},
	}

	if err := root.Execute(nil); err == nil {
		t.Fatal("missing subcommand accepted")
	}
	if !strings.Contains(help.String(), "Manage the device key") {
		t.Errorf("help not printed:\n%s", help.String())
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:   "hubkey",
		Output: &help,
		Subcommands: []*Command{
			{
				Name:        "fetch",
				Summary:     "Retrieve a vault key",
				Description: "Retrieve a vault key from Hub.",
				Flags: func() *pflag.FlagSet {
					flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
					flagSet.String("vault", "", "vault directory or config file")
					return flagSet
				},
				Examples: []Example{{Description: "Fetch interactively", Command: "hubkey fetch --vault ~/Vault --tui"}},
				Run:      func([]string) error { return nil },
			},
		},
	}

	if err := root.Execute([]string{"fetch", "--help"}); err != nil {
		t.Fatalf("Execute(--help): %v", err)
	}
	output := help.String()
	for _, want := range []string{
		"Retrieve a vault key from Hub.",
		"Usage:\n  hubkey fetch [flags]",
		"--vault",
		"# Fetch interactively",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help missing %q:\n%s", want, output)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"fetch", "fetch", 0},
		{"fecth", "fetch", 2},
		{"devce", "device", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 2 {
		t.Fatalf("ExitError does not report its code")
	}
	if err.Error() != "exit code 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}
