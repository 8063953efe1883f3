// Package repl implements the interactive rendering shell.
//
// Lines typed at the prompt are compiled as template source and rendered
// against the live attribute scope. A control mode, toggled with Esc,
// offers commands for inspecting attributes and templates, loading more
// attribute files, and exiting. Completions for attribute names, template
// names, and builtins appear as you type; Tab cycles through them.
package repl

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help       Print this cruft
  attrs      List attribute bindings
  templates  List defined template names
  load FILE  Merge attribute bindings from a YAML file
  clear      Clear screen
  quit       Exit REPL

Usage:
  Type template source to render it (e.g. <names; separator=", ">)
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between render and command modes
  Use Up/Down arrows for history navigation
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc    func() context.Context
	input      textinput.Model
	scope      *lang.Scope
	group      *lang.Group
	resolve    func(string) string
	logger     log.Logger
	history    *History
	historyIdx int
	completer  completer
	width      int
	quitting   bool
	mode       inputMode
	evalText   string
	ctrlText   string
}

// Run starts the REPL over the given attribute scope and template group.
// History persists under cacheDir across sessions.
func Run(
	ctx context.Context,
	scope *lang.Scope,
	group *lang.Group,
	resolve func(string) string,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(
		ctx,
		"repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("attr_count", len(scope.Names())),
		slog.Int("template_count", len(group.Names())),
	)

	history := NewHistory(filepath.Join(cacheDir, baseHistory))
	if err := history.Load(); err != nil {
		fmt.Printf("Warning: could not load history: %v\n", err)
	}

	m := newModel(ctx, scope, group, resolve, history, logger)

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	scope *lang.Scope,
	group *lang.Group,
	resolve func(string) string,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		scope:      scope,
		group:      group,
		resolve:    resolve,
		logger:     logger,
		history:    history,
		historyIdx: history.Count(modeEval),
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.historyIdx < m.history.Count(m.mode):
		b.WriteString(hintStyle.Render(fmt.Sprintf(
			"%d/%d", m.historyIdx+1, m.history.Count(m.mode),
		)))
		b.WriteString("\n")

	case strings.TrimSpace(m.input.Value()) == "":
		hint := "Type template source or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: help, attrs, templates, load, clear, quit" +
				" (press Esc to return)"
		}

		b.WriteString(hintStyle.Render(hint))
		b.WriteString("\n")

	case len(m.completer.matches) > 0:
		b.WriteString(m.completer.bar(m.width))
		b.WriteString("\n")

	default:
		b.WriteString("\n")
	}

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.historyIdx = m.history.Count(m.mode)
		m.completer.reset()

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		return m.executeInput()

	case tea.KeyTab:
		m.completer.cycle(&m.input, m.candidates(), 1)

		return m, nil

	case tea.KeyShiftTab:
		m.completer.cycle(&m.input, m.candidates(), -1)

		return m, nil

	case tea.KeyEsc:
		return m.toggleMode(), nil

	case tea.KeyUp:
		return m.historyStep(-1), nil

	case tea.KeyDown:
		return m.historyStep(1), nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	m.completer.refresh(m.input.Value(), m.input.Position(), m.candidates())

	return m, cmd
}

// toggleMode switches between render and command modes, preserving each
// mode's input text.
func (m model) toggleMode() model {
	if m.mode == modeEval {
		m.evalText = m.input.Value()
		m.mode = modeCtrl
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
	} else {
		m.ctrlText = m.input.Value()
		m.mode = modeEval
		m.input.Prompt = promptStyle.Render(evalPrompt)
		m.input.SetValue(m.evalText)
	}

	m.input.CursorEnd()
	m.completer.reset()
	m.historyIdx = m.history.Count(m.mode)

	return m
}

// historyStep moves through history entries for the current mode.
func (m model) historyStep(delta int) model {
	entries := m.history.Entries(m.mode)

	idx := m.historyIdx + delta
	if idx < 0 || len(entries) == 0 {
		return m
	}

	if idx >= len(entries) {
		m.historyIdx = len(entries)
		m.input.SetValue("")

		return m
	}

	m.historyIdx = idx
	m.input.SetValue(entries[idx])
	m.input.CursorEnd()

	return m
}

// candidates returns the completion word list for the current mode.
func (m model) candidates() []string {
	if m.mode == modeCtrl {
		return ctrlCommands
	}

	names := m.scope.Names()
	names = append(names, m.group.Names()...)
	names = append(names, builtinNames...)
	names = append(names, lang.EnvNames()...)

	return names
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	if err := m.history.Append(input, m.mode); err != nil {
		m.logger.WarnContext(
			m.ctxFunc(), "history write", slog.Any("error", err),
		)
	}

	m.historyIdx = m.history.Count(m.mode)
	m.input.SetValue("")
	m.completer.reset()

	echo := promptStyle.Render(evalPrompt) + inputStyle.Render(input)
	if m.mode == modeCtrl {
		echo = ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)

		next, cmd := m.runCommand(input)

		return next, tea.Sequence(tea.Println(echo), cmd)
	}

	result, err := m.render(input)
	if err != nil {
		return m, tea.Sequence(
			tea.Println(echo),
			tea.Println(errorStyle.Render("🗴 "+err.Error())),
		)
	}

	return m, tea.Sequence(
		tea.Println(echo),
		tea.Println(resultStyle.Render(result)),
	)
}

// render compiles input as template source and renders it against the
// current scope.
func (m model) render(input string) (string, error) {
	ctx := m.ctxFunc()

	t, err := lang.ParseString(
		ctx,
		input,
		lang.WithGroup(m.group),
		lang.WithLogger(m.logger),
	)
	if err != nil {
		return "", err
	}

	return t.Render(
		ctx,
		m.scope,
		lang.WithGroup(m.group),
		lang.WithLogger(m.logger),
	)
}

// runCommand executes a control-mode command.
func (m model) runCommand(input string) (model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")

	switch name {
	case "help":
		return m, tea.Println(hintStyle.Render(helpMessage()))

	case "attrs":
		return m, tea.Println(m.describeAttrs())

	case "templates":
		names := m.group.Names()
		if len(names) == 0 {
			return m, tea.Println(hintStyle.Render("(no templates defined)"))
		}

		return m, tea.Println(resultStyle.Render(strings.Join(names, "\n")))

	case "load":
		return m.loadAttrs(strings.TrimSpace(arg))

	case "clear":
		return m, tea.ClearScreen

	case "quit", "exit":
		m.quitting = true

		return m, tea.Quit

	default:
		return m, tea.Println(
			errorStyle.Render("🗴 unknown command: " + name),
		)
	}
}

// describeAttrs renders the current attribute bindings as YAML.
func (m model) describeAttrs() string {
	names := m.scope.Names()
	if len(names) == 0 {
		return hintStyle.Render("(no attributes bound)")
	}

	var b strings.Builder

	err := m.scope.FormatYAML(m.ctxFunc(), &b, 2)
	if err != nil {
		return errorStyle.Render("🗴 " + err.Error())
	}

	return resultStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// loadAttrs merges bindings from a YAML file into the live scope.
func (m model) loadAttrs(path string) (model, tea.Cmd) {
	if path == "" {
		return m, tea.Println(errorStyle.Render("🗴 usage: load FILE"))
	}

	err := loadAttrFile(m.ctxFunc(), m.scope, m.resolve(path))
	if err != nil {
		return m, tea.Println(errorStyle.Render("🗴 " + err.Error()))
	}

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl attrs loaded",
		slog.String("file", path),
	)

	return m, tea.Println(resultStyle.Render("✔ loaded " + path))
}
