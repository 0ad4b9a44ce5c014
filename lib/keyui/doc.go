// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyui presents Hub key retrieval to a person at a terminal.
//
// Two [hubkey.Presenter] implementations share the same screens:
//
//   - [Terminal] writes each screen once, as a styled box, to an
//     io.Writer. It suits scripts and plain shells.
//   - [TUI] runs a bubbletea program that shows a spinner and the
//     latest session log line while requests are in flight, then
//     replaces it with the outcome screen. Ctrl-C, Esc, and q cancel
//     the session.
//
// Screens are rendered with lipgloss against an explicit termenv color
// profile, so output written to a pipe or a file stays free of escape
// sequences.
package keyui
