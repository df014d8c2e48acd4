// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/splitctl/internal/cache"
	"github.com/staranto/splitctl/internal/command"
)

// Minimal doc generator. For every splitctl subcommand it writes:
//   - docs/commands/<cmd>.md rendered from the command definition
//   - docs/man/share/man1/splitctl-<cmd>.1 via md2man
//   - docs/tldr/splitctl-<cmd>.md from the command's examples

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	commandsDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(repoRoot, "docs", "tldr")

	for _, dir := range []string{commandsDir, manOutDir, tldrOutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("creating output dir %s: %v", dir, err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"splitctl"}, cache.New(""), nil)
	if err != nil {
		fatalf("building commands: %v", err)
	}

	var processed int
	for _, cmd := range app.Commands {
		if cmd.Name == "completion" {
			continue
		}

		md := renderMarkdown(cmd)
		mdPath := filepath.Join(commandsDir, cmd.Name+".md")
		if err := writeFileIfChanged(mdPath, []byte(md), writeOnlyIfChanged); err != nil {
			fatalf("writing markdown for %s: %v", cmd.Name, err)
		}

		manPath := filepath.Join(manOutDir, fmt.Sprintf("splitctl-%s.1", cmd.Name))
		if err := writeFileIfChanged(manPath, md2man.Render([]byte(md)), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd.Name, err)
		}

		tldr := buildTLDR(cmd.Name, cmd.Usage, allExamples(cmd))
		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("splitctl-%s.md", cmd.Name))
		if err := writeFileIfChanged(tldrPath, []byte(tldr), writeOnlyIfChanged); err != nil {
			fatalf("writing TLDR for %s: %v", cmd.Name, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no commands found")
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

// renderMarkdown documents cmd and its subcommands in the layout md2man
// expects: a title line followed by NAME, SYNOPSIS and sections.
func renderMarkdown(cmd *cli.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "splitctl-%s 1 \"\" \"splitctl\" \"splitctl manual\"\n", cmd.Name)
	b.WriteString("==================================================\n\n")

	b.WriteString("# NAME\n\n")
	fmt.Fprintf(&b, "splitctl-%s - %s\n\n", cmd.Name, cmd.Usage)

	b.WriteString("# SYNOPSIS\n\n")
	if cmd.UsageText != "" {
		fmt.Fprintf(&b, "`%s`\n\n", cmd.UsageText)
	} else {
		fmt.Fprintf(&b, "`splitctl %s [options]`\n\n", cmd.Name)
	}

	if len(cmd.Commands) > 0 {
		b.WriteString("# COMMANDS\n\n")
		for _, sub := range cmd.Commands {
			fmt.Fprintf(&b, "**%s**\n: %s\n\n", sub.Name, sub.Usage)
		}
	}

	writeFlags(&b, "OPTIONS", cmd.Flags)
	for _, sub := range cmd.Commands {
		writeFlags(&b, strings.ToUpper(sub.Name)+" OPTIONS", sub.Flags)
	}

	if exs := allExamples(cmd); len(exs) > 0 {
		b.WriteString("# QUICK EXAMPLES\n\n```\n")
		for _, ex := range exs {
			fmt.Fprintf(&b, "# %s\n%s\n\n", ex[1], ex[0])
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func writeFlags(b *strings.Builder, title string, flags []cli.Flag) {
	var lines []string
	for _, f := range flags {
		if v, ok := f.(cli.VisibleFlag); ok && !v.IsVisible() {
			continue
		}
		names := make([]string, 0, len(f.Names()))
		for _, n := range f.Names() {
			if len(n) == 1 {
				names = append(names, "-"+n)
			} else {
				names = append(names, "--"+n)
			}
		}
		usage := ""
		if d, ok := f.(cli.DocGenerationFlag); ok {
			usage = d.GetUsage()
		}
		lines = append(lines, fmt.Sprintf("**%s**\n: %s\n", strings.Join(names, ", "), usage))
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "# %s\n\n%s\n", title, strings.Join(lines, "\n"))
}

// allExamples returns the examples of cmd, or of its first subcommand that
// has some.
func allExamples(cmd *cli.Command) [][2]string {
	if exs := command.Examples(cmd); len(exs) > 0 {
		return exs
	}
	for _, sub := range cmd.Commands {
		if exs := command.Examples(sub); len(exs) > 0 {
			return exs
		}
	}
	return nil
}

func buildTLDR(cmd, short string, exs [][2]string) string {
	var b strings.Builder
	// Header
	b.WriteString("# splitctl-" + cmd + "\n\n")
	if short != "" {
		b.WriteString("> " + short + ".\n")
	} else {
		b.WriteString("> splitctl " + cmd + "\n")
	}
	b.WriteString("> More information: https://github.com/staranto/splitctl.\n\n")

	if len(exs) == 0 {
		// Fallback examples
		b.WriteString("- Show help for the command:\n\n")
		b.WriteString("`splitctl " + cmd + " --help`\n")
		b.WriteString("\n")
		return b.String()
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + strings.ToUpper(ex[1][:1]) + ex[1][1:] + ":\n\n")
		b.WriteString("`" + sanitizeCommand(ex[0]) + "`\n")
	}
	return b.String()
}

func sanitizeCommand(s string) string {
	// For now, just compress runs of whitespace
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
