// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework behind the hubkey binary.
//
// A [Command] is a node in a tree: it either dispatches to Subcommands
// by the first positional argument or parses its pflag FlagSet and
// calls Run. Unknown commands and flags get "did you mean" suggestions
// by edit distance. Commands that end with a meaningful non-zero exit
// return an [ExitError] instead of printing an error.
//
// [NewLogger] builds the slog logger shared by all commands.
package cli
