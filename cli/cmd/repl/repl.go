// Package repl implements an interactive, completion-assisted read-eval-
// print loop for the Lisp engine, built on Bubble Tea.
package repl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/parembnet/lisp"
	"github.com/ardnew/parembnet/log"
)

// commandHelp is the text printed by the ",help" command, naming every
// REPL command from spec section 6.
const commandHelp = `,exit             quit the REPL
,help             show this message
,logcomp          toggle compiler instruction tracing
,logexec          toggle VM stack tracing
,time             toggle printing elapsed time per expression`

const prompt = "lisp> "

var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
)

// model is the Bubble Tea model driving the REPL: one text input, a
// running history of submitted lines, and the fuzzy-matched completion
// candidates for the word under the cursor.
type model struct {
	ctx     context.Context
	engine  *lisp.Context
	input   textinput.Model
	history []string
	histIdx int
	matches fuzzy.Matches
	sugg    int
	quit    bool
	width   int

	// logOpts/showTime track the ,logcomp / ,logexec / ,time toggles from
	// spec section 6's REPL command set.
	logOpts  lisp.LogOptions
	showTime bool
}

// Run starts the REPL against engine until the user quits or the context
// is cancelled.
func Run(ctx context.Context, engine *lisp.Context, _ log.Logger) error {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80

	m := model{ctx: ctx, engine: engine, input: ti, histIdx: 0, width: 80, sugg: -1}

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()

	return err
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(prompt) - 2

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlD:
		m.quit = true

		return m, tea.Quit

	case tea.KeyEnter:
		return m.execute()

	case tea.KeyTab:
		return m.cycle(1)

	case tea.KeyShiftTab:
		return m.cycle(-1)

	case tea.KeyUp:
		return m.historyPrev()

	case tea.KeyDown:
		return m.historyNext()
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	m.refreshMatches()

	return m, cmd
}

func (m model) execute() (model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	m.matches, m.sugg = nil, -1

	if line == "" {
		return m, nil
	}

	if line == ":quit" || line == ":q" || line == ",exit" {
		m.quit = true

		return m, tea.Quit
	}

	if strings.HasPrefix(line, ",") {
		return m.runCommand(line)
	}

	m.history = append(m.history, line)
	m.histIdx = len(m.history)

	echo := tea.Println(promptStyle.Render(prompt) + line)

	start := time.Now()

	results, err := m.engine.CompileAndExecute(m.ctx, line)
	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	var out strings.Builder

	for _, r := range results {
		out.WriteString(lisp.Print(r.Output))
		out.WriteString("\n")
	}

	if m.showTime {
		out.WriteString(hintStyle.Render(fmt.Sprintf("; elapsed %s", time.Since(start))))
		out.WriteString("\n")
	}

	return m, tea.Sequence(echo, tea.Println(resultStyle.Render(strings.TrimRight(out.String(), "\n"))))
}

// runCommand handles the ",logcomp"/",logexec"/",time"/",help" REPL
// commands from spec section 6; everything else is parsed as an
// expression by execute.
func (m model) runCommand(line string) (model, tea.Cmd) {
	echo := tea.Println(promptStyle.Render(prompt) + line)

	switch line {
	case ",help":
		return m, tea.Sequence(echo, tea.Println(hintStyle.Render(commandHelp)))

	case ",logcomp":
		m.logOpts.Instructions = !m.logOpts.Instructions
		m.engine.SetLogOptions(m.logOpts)

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render(fmt.Sprintf("logcomp: %v", m.logOpts.Instructions))))

	case ",logexec":
		m.logOpts.Stack = !m.logOpts.Stack
		m.engine.SetLogOptions(m.logOpts)

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render(fmt.Sprintf("logexec: %v", m.logOpts.Stack))))

	case ",time":
		m.showTime = !m.showTime

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render(fmt.Sprintf("time: %v", m.showTime))))

	default:
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("unknown command: "+line)))
	}
}

func (m model) historyPrev() (model, tea.Cmd) {
	if m.histIdx > 0 {
		m.histIdx--
		m.input.SetValue(m.history[m.histIdx])
		m.input.SetCursor(len(m.history[m.histIdx]))
	}

	return m, nil
}

func (m model) historyNext() (model, tea.Cmd) {
	if m.histIdx < len(m.history)-1 {
		m.histIdx++
		m.input.SetValue(m.history[m.histIdx])
		m.input.SetCursor(len(m.history[m.histIdx]))
	} else {
		m.histIdx = len(m.history)
		m.input.SetValue("")
	}

	return m, nil
}

func (m model) cycle(dir int) (model, tea.Cmd) {
	if len(m.matches) == 0 {
		return m, nil
	}

	m.sugg += dir
	if m.sugg < 0 {
		m.sugg = len(m.matches) - 1
	}

	if m.sugg >= len(m.matches) {
		m.sugg = 0
	}

	_, start, end := currentWord(m.input.Value(), m.input.Position())
	replacement := m.matches[m.sugg].Str
	value := m.input.Value()[:start] + replacement + m.input.Value()[end:]
	m.input.SetValue(value)
	m.input.SetCursor(start + len(replacement))

	return m, nil
}

// currentWord returns the identifier touching cursor and its byte bounds
// within input.
func currentWord(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor
	for start > 0 && !isBoundary(rune(input[start-1])) {
		start--
	}

	end = cursor
	for end < len(input) && !isBoundary(rune(input[end])) {
		end++
	}

	return input[start:end], start, end
}

func isBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '(', ')', '{', '}', '\'', '`', ',':
		return true
	default:
		return false
	}
}

// refreshMatches recomputes fuzzy completion candidates for the word at
// the cursor against every interned symbol name across all packages.
func (m *model) refreshMatches() {
	word, _, _ := currentWord(m.input.Value(), m.input.Position())
	if word == "" {
		m.matches, m.sugg = nil, -1

		return
	}

	candidates := symbolNames(m.engine.Packages)
	m.matches = fuzzy.Find(word, candidates)
	m.sugg = -1
}

func symbolNames(pkgs *lisp.Packages) []string {
	var names []string

	for _, pkg := range pkgs.All() {
		for _, sym := range pkg.Symbols() {
			names = append(names, sym.Name)
		}
	}

	return names
}

func (m model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	if len(m.matches) > 0 {
		b.WriteString(renderMatches(m.matches, m.sugg))
	}

	b.WriteString("\n")

	return b.String()
}

func renderMatches(matches fuzzy.Matches, sugg int) string {
	var parts []string

	for i, mt := range matches {
		style := suggestionStyle
		if i == sugg {
			style = selectedStyle
		}

		parts = append(parts, style.Render(mt.Str))
	}

	return hintStyle.Render(fmt.Sprintf("%d candidates: ", len(matches))) + strings.Join(parts, "  ")
}
