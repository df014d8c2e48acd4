// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package menu

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// ErrBack is returned by a Prompter when the user backs out of a prompt.
	ErrBack = errors.New("back")
	// ErrAborted is returned by a Prompter when the user interrupts.
	ErrAborted = errors.New("aborted")
)

// Prompter asks the user things.
type Prompter interface {
	// Choose shows a numbered list and returns the index picked.
	Choose(title string, options []string) (int, error)
	// Input reads a line of text.
	Input(prompt string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(prompt string) (bool, error)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	ruleStyle     = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f6be00"))
)

const rule = "----------------------------------------"

// TeaPrompter runs a small bubbletea program per prompt.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTeaPrompter returns a prompter reading keys from in and drawing to out.
// Nil streams mean the terminal.
func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

func (p *TeaPrompter) Choose(title string, options []string) (int, error) {
	final, err := p.run(newChoiceModel(title, options))
	if err != nil {
		return 0, err
	}
	m := final.(choiceModel)
	switch {
	case m.aborted:
		return 0, ErrAborted
	case m.back:
		return 0, ErrBack
	}
	return m.chosen, nil
}

func (p *TeaPrompter) Input(prompt string) (string, error) {
	final, err := p.run(newInputModel(prompt))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	switch {
	case m.aborted:
		return "", ErrAborted
	case m.back:
		return "", ErrBack
	}
	return strings.TrimSpace(m.input.Value()), nil
}

func (p *TeaPrompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Input(prompt + " (yes/no):")
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

func (p *TeaPrompter) run(m tea.Model) (tea.Model, error) {
	var opts []tea.ProgramOption
	if p.in != nil {
		opts = append(opts, tea.WithInput(p.in))
	}
	if p.out != nil {
		opts = append(opts, tea.WithOutput(p.out))
	}
	return tea.NewProgram(m, opts...).Run()
}

// IsYes reports whether answer is an affirmative reply.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// choiceModel is a numbered list. Keys 1-9 pick directly, arrows and enter
// pick by cursor, esc or 0 goes back.
type choiceModel struct {
	title   string
	options []string
	cursor  int
	chosen  int
	back    bool
	aborted bool
}

func newChoiceModel(title string, options []string) choiceModel {
	return choiceModel{title: title, options: options, chosen: -1}
}

func (m choiceModel) Init() tea.Cmd {
	return nil
}

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	case "esc", "0":
		m.back = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.options) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	default:
		if n, err := strconv.Atoi(key.String()); err == nil && n >= 1 && n <= len(m.options) {
			m.chosen = n - 1
			m.cursor = n - 1
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m choiceModel) View() string {
	var b strings.Builder
	b.WriteString(ruleStyle.Render(rule) + "\n")
	b.WriteString(titleStyle.Render(m.title) + "\n")
	b.WriteString(ruleStyle.Render(rule) + "\n")
	for i, opt := range m.options {
		line := fmt.Sprintf("%d. %s", i+1, opt)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if m.chosen < 0 && !m.back && !m.aborted {
		b.WriteString(ruleStyle.Render(fmt.Sprintf("Enter your choice (1-%d), esc to go back", len(m.options))) + "\n")
	}
	return b.String()
}

type inputModel struct {
	input   textinput.Model
	done    bool
	back    bool
	aborted bool
}

func newInputModel(prompt string) inputModel {
	ti := textinput.New()
	ti.Prompt = prompt + " "
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.back = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	return m.input.View() + "\n"
}
