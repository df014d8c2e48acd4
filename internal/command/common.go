// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/attrs"
	"github.com/staranto/splitctl/internal/catalog"
	"github.com/staranto/splitctl/internal/menu"
	"github.com/staranto/splitctl/internal/meta"
	"github.com/staranto/splitctl/internal/output"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr splitctl-<subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "splitctl-"+subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// ShortCircuitExamples prints the command's examples when --examples is set
// and returns true if it handled the request.
func ShortCircuitExamples(cmd *cli.Command, examples [][2]string) bool {
	if cmd.Bool("examples") {
		output.DumpExamples(Writer(cmd), examples)
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList) {
	//nolint:errcheck
	{
		for _, d := range defaults {
			al.Set(d)
		}
		if extras := cmd.String("attrs"); extras != "" {
			al.Set(extras)
		}
		al.SetGlobalTransformSpec()
	}
	return
}

// Emit renders records with the output flags of cmd. defaultSort applies
// when --sort is not given.
func Emit(cmd *cli.Command, records any, defaultAttrs, defaultSort string) error {
	al := BuildAttrs(cmd, defaultAttrs)
	log.Debugf("attrs: %v", al)

	opts := output.NewOptions(cmd, al)
	if opts.Sort == "" {
		opts.Sort = defaultSort
	}
	return output.SliceDiceSpit(records, opts, Writer(cmd))
}

// GetMeta returns the meta.Meta stored in the Metadata of cmd or its closest
// ancestor. If missing or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range cmd.Lineage() {
		if c.Metadata == nil {
			continue
		}
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

// Examples returns the usage examples registered for cmd.
func Examples(cmd *cli.Command) [][2]string {
	if cmd == nil || cmd.Metadata == nil {
		return nil
	}
	ex, _ := cmd.Metadata["examples"].([][2]string)
	return ex
}

// Writer is where command output goes.
func Writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// Confirm asks prompt on the root writer and reads the answer from the root
// reader. --yes answers for the user.
func Confirm(cmd *cli.Command, prompt string) bool {
	if cmd.Bool("yes") {
		return true
	}

	fmt.Fprintf(Writer(cmd), "%s [y/N]: ", prompt)

	r := cmd.Root().Reader
	if r == nil {
		r = os.Stdin
	}
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return menu.IsYes(answer)
}

// CommandBuilder constructs a cli.Command for a subcommand using a consistent
// pattern. The builder wires metadata, adds the tldr and examples flags and,
// when Output is set, the global output flags.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Examples  [][2]string
	Output    bool
	Action    func(context.Context, *cli.Command) error
	Commands  []*cli.Command
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{newTLDRFlag(), newExamplesFlag()}, cb.Flags...)
	if cb.Output {
		flags = append(flags, NewGlobalFlags(cb.Name)...)
	}

	c := &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta":     cb.Meta,
			"examples": cb.Examples,
		},
		Flags:    flags,
		Commands: cb.Commands,
	}

	if cb.Action != nil {
		c.Action = func(ctx context.Context, cmd *cli.Command) error {
			log.Debugf("Executing action for %v", cmd.FullName())
			if ShortCircuitTLDR(ctx, cmd, cb.Name) {
				return nil
			}
			if ShortCircuitExamples(cmd, cb.Examples) {
				return nil
			}
			return cb.Action(ctx, cmd)
		}
	}
	return c
}

// catalogFor connects to the Split API through the meta of cmd.
func catalogFor(cmd *cli.Command) (*catalog.Catalog, error) {
	return GetMeta(cmd).Catalog()
}
