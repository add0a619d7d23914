package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/win32emu/dispatch"
	"github.com/wippyai/win32emu/script"
	"github.com/wippyai/win32emu/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// visibleAPIs is the height of the scrolling API list.
const visibleAPIs = 15

type interactiveModel struct {
	err      error
	sess     *session.Session
	reg      *dispatch.Registry
	runner   *script.Runner
	output   *bytes.Buffer
	result   string
	apis     []dispatch.Schema
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectAPI modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(sess *session.Session, reg *dispatch.Registry, output *bytes.Buffer) *interactiveModel {
	var log bytes.Buffer
	return &interactiveModel{
		sess:   sess,
		reg:    reg,
		runner: script.NewRunner(reg, sess, &log),
		output: output,
		apis:   reg.Schemas(),
		state:  stateSelectAPI,
	}
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up":
			if m.state == stateSelectAPI && m.selected > 0 {
				m.selected--
			}

		case "down":
			if m.state == stateSelectAPI && m.selected < len(m.apis)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectAPI:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callAPI
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callAPI

			case stateShowResult:
				m.state = stateSelectAPI
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectAPI
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectAPI
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	s := m.apis[m.selected]
	m.inputs = make([]textinput.Model, len(s.Params))
	for i, p := range s.Params {
		ti := textinput.New()
		ti.Placeholder = witTypeStr(p.Type.Wit())
		ti.Prompt = p.Name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callAPI() tea.Msg {
	if !m.sess.Running() {
		return callResultMsg{err: fmt.Errorf("session halted (exit code %d)", m.sess.ExitCode())}
	}

	s := m.apis[m.selected]
	fields := []string{"_", "=", s.Name}
	for i, input := range m.inputs {
		fields = append(fields, convertArg(input.Value(), s.Params[i].Type.Wit()))
	}

	stmt, _, err := script.ParseLine(0, strings.Join(fields, " "))
	if err != nil {
		return callResultMsg{err: err}
	}

	m.output.Reset()
	if err := m.runner.Exec(context.Background(), stmt); err != nil {
		return callResultMsg{err: err}
	}
	ret, _ := m.runner.Var("_")

	var b strings.Builder
	fmt.Fprintf(&b, "%s = %#x (%s)\nlast error = %d", s.Name, ret, strconv.FormatUint(ret, 10), m.sess.LastError())
	if m.output.Len() > 0 {
		fmt.Fprintf(&b, "\n\n--- output ---\n%s", m.output.String())
	}
	if !m.sess.Running() {
		fmt.Fprintf(&b, "\n\nsession halted (exit code %d)", m.sess.ExitCode())
	}
	return callResultMsg{result: b.String()}
}

// convertArg turns a text field into a script argument. Empty fields are
// zero; bare text for string parameters is quoted.
func convertArg(value string, t wit.Type) string {
	value = strings.TrimSpace(value)
	switch t.(type) {
	case wit.String:
		if value == "" {
			return `""`
		}
		if strings.HasPrefix(value, `"`) || strings.HasPrefix(value, "$") {
			return value
		}
		return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	case wit.Bool:
		switch value {
		case "true":
			return "1"
		case "", "false":
			return "0"
		}
		return value
	default:
		if value == "" {
			return "0"
		}
		return value
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("kernel32 console"))
	b.WriteString(" ")
	b.WriteString(m.sess.Root().Host())
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectAPI:
		b.WriteString(fmt.Sprintf("Select an API to call (last error %d):\n\n", m.sess.LastError()))
		start := max(0, min(m.selected-visibleAPIs/2, len(m.apis)-visibleAPIs))
		end := min(len(m.apis), start+visibleAPIs)
		for i := start; i < end; i++ {
			line := formatSchema(m.apis[i], i != m.selected)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		s := m.apis[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(s.Name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(s.Params[i].Type.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		s := m.apis[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(s.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case nil:
		return "void"
	case wit.Bool:
		return "bool"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(opts options) error {
	ctx := context.Background()
	output := &bytes.Buffer{}

	var stdin bytes.Buffer
	stdin.WriteString(opts.stdin)

	sess, reg, err := newSession(ctx, opts, &stdin, output, output)
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(newInteractiveModel(sess, reg, output), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
