// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/hubkey/lib/hubkey"
)

// Terminal is a Presenter that writes screens to an io.Writer.
type Terminal struct {
	options  Options
	renderer *lipgloss.Renderer

	mu     sync.Mutex
	writer io.Writer
	shown  hubkey.Screen
}

var _ hubkey.Presenter = (*Terminal)(nil)

// NewTerminal returns a presenter writing to writer.
func NewTerminal(writer io.Writer, options Options) *Terminal {
	options = options.withDefaults()
	return &Terminal{
		options:  options,
		renderer: newRenderer(writer, options.Profile),
		writer:   writer,
	}
}

func (t *Terminal) ShowSetupDevice()     { t.show(hubkey.ScreenSetupDevice) }
func (t *Terminal) ShowRegisterDevice()  { t.show(hubkey.ScreenRegisterDevice) }
func (t *Terminal) ShowUnauthorized()    { t.show(hubkey.ScreenUnauthorized) }
func (t *Terminal) ShowLicenseExceeded() { t.show(hubkey.ScreenLicenseExceeded) }
func (t *Terminal) Close()               { t.show(hubkey.ScreenClose) }

// Shown returns the last screen written, or ScreenNone.
func (t *Terminal) Shown() hubkey.Screen {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shown
}

func (t *Terminal) show(screen hubkey.Screen) {
	message, ok := MessageFor(screen, t.options)
	if !ok {
		return
	}
	rendered := Render(t.renderer, t.options.Theme, message, t.options.Width)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.shown = screen
	// Presenter methods cannot report errors; a failed write to the
	// terminal leaves nothing else to tell.
	fmt.Fprintln(t.writer, rendered)
}
