// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"

	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/output"
)

const title = "SPLITCTL"

// Menu is an interactive session over a catalog.
type Menu struct {
	catalog  *catalog.Catalog
	prompter Prompter
	out      io.Writer
	dir      string
}

// Option customizes a Menu.
type Option func(*Menu)

// WithPrompter replaces the terminal prompter.
func WithPrompter(p Prompter) Option {
	return func(m *Menu) { m.prompter = p }
}

// WithOutput sends handler output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Menu) { m.out = w }
}

// WithExportDir sets where exports are written. Defaults to the working
// directory.
func WithExportDir(dir string) Option {
	return func(m *Menu) { m.dir = dir }
}

func New(c *catalog.Catalog, opts ...Option) *Menu {
	m := &Menu{catalog: c, out: os.Stdout, dir: "."}
	for _, opt := range opts {
		opt(m)
	}
	if m.prompter == nil {
		m.prompter = NewTeaPrompter(nil, nil)
	}
	return m
}

// Run shows the main menu and dispatches choices until the user quits. The
// store is saved on the way out. Handler errors are printed and the menu is
// shown again.
func (m *Menu) Run(ctx context.Context) error {
	current := Main
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, m.quit())
		}

		items := menus[current]
		options := make([]string, 0, len(items))
		for _, c := range items {
			options = append(options, c.String())
		}

		idx, err := m.prompter.Choose(fmt.Sprintf("%s - %s", title, current), options)
		switch {
		case errors.Is(err, ErrAborted):
			return m.quit()
		case errors.Is(err, ErrBack):
			if current == Main {
				return m.quit()
			}
			current = Main
			continue
		case err != nil:
			return errors.Join(err, m.quit())
		}
		if idx < 0 || idx >= len(items) {
			fmt.Fprintln(m.out, "Invalid choice, try again")
			continue
		}

		cmd := items[idx]
		if cmd == Quit {
			return m.quit()
		}
		if _, ok := menus[cmd]; ok {
			current = cmd
			continue
		}

		if err := m.dispatch(ctx, cmd); err != nil {
			if errors.Is(err, ErrAborted) {
				return m.quit()
			}
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}
	}
}

// dispatch runs the handler for cmd. Backing out of a handler is not an
// error.
func (m *Menu) dispatch(ctx context.Context, cmd Command) error {
	h, ok := handlers[cmd]
	if !ok {
		return fmt.Errorf("no handler for %s", cmd)
	}
	log.Debugf("menu: %s", cmd)
	if err := h(m, ctx); err != nil && !errors.Is(err, ErrBack) {
		return err
	}
	return nil
}

func (m *Menu) quit() error {
	fmt.Fprintln(m.out, "Exiting...")
	if err := m.catalog.Store().Save(); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// show prints v as indented JSON.
func (m *Menu) show(v any) error {
	return output.SliceDiceSpit(v, output.Options{Format: "raw"}, m.out)
}

// pick asks the user to choose one of names.
func (m *Menu) pick(what string, names []string) (int, error) {
	if len(names) == 0 {
		return 0, fmt.Errorf("no %s available", what)
	}
	return m.prompter.Choose("Available "+what+":", names)
}
