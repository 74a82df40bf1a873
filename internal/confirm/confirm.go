// Package confirm asks the operator yes/no questions.
package confirm

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	// ErrAborted is returned when the operator cancels the prompt
	ErrAborted = errors.New("confirmation aborted")
	// ErrNoInput is returned when input ends before an answer was given
	ErrNoInput = errors.New("no answer on input")
)

// Confirmer answers a yes/no question. Implementations block until an answer
// is available.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Func adapts a plain function to Confirmer
type Func func(ctx context.Context, question string) (bool, error)

func (f Func) Confirm(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Always answers every question with answer, without reading any input
func Always(answer bool) Confirmer {
	return Func(func(ctx context.Context, question string) (bool, error) {
		return answer, nil
	})
}

// Prompt asks on a terminal through a small bubbletea program. When In is not
// a terminal, answers are read line by line instead.
type Prompt struct {
	In      io.Reader
	Out     io.Writer
	Default bool

	lines *bufio.Reader
}

// NewPrompt creates a prompt reading from in and drawing on out. Enter accepts
// the default answer, which is yes.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: in, Out: out, Default: true}
}

func (p *Prompt) Confirm(ctx context.Context, question string) (bool, error) {
	if !isTerminal(p.In) {
		return p.confirmLine(ctx, question)
	}
	return p.confirmTerminal(ctx, question)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// confirmLine reads one answer per line. Unknown answers ask again; running
// out of input is ErrNoInput.
func (p *Prompt) confirmLine(ctx context.Context, question string) (bool, error) {
	if p.lines == nil {
		p.lines = bufio.NewReader(p.In)
	}
	m := newModel(question, p.Default, lipgloss.NewRenderer(p.Out))

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprint(p.Out, m.View())

		line, err := p.lines.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(p.Out)
			if errors.Is(err, io.EOF) {
				return false, ErrNoInput
			}
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}

		if key, ok := answerKey(line); ok {
			next, _ := m.Update(key)
			m = next.(model)
			fmt.Fprint(p.Out, m.answerView())
			return m.answer, nil
		}

		fmt.Fprintln(p.Out)
		if err != nil {
			return false, ErrNoInput
		}
	}
}

// answerKey maps a typed line to the key the terminal prompt would receive
func answerKey(line string) (tea.KeyMsg, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return tea.KeyMsg{Type: tea.KeyEnter}, true
	case "y", "yes":
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, true
	case "n", "no":
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, true
	}
	return tea.KeyMsg{}, false
}

func (p *Prompt) confirmTerminal(ctx context.Context, question string) (bool, error) {
	m := newModel(question, p.Default, lipgloss.NewRenderer(p.Out))

	program := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
		tea.WithoutSignalHandler(),
	)

	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	result, ok := final.(model)
	if !ok {
		return false, fmt.Errorf("unexpected prompt model %T", final)
	}
	switch {
	case result.aborted:
		return false, ErrAborted
	case result.eof, !result.answered:
		return false, ErrNoInput
	}
	return result.answer, nil
}

// model is the bubbletea state of one question
type model struct {
	question string
	def      bool
	answer   bool
	answered bool
	aborted  bool
	eof      bool

	questionStyle lipgloss.Style
	hintStyle     lipgloss.Style
	answerStyle   lipgloss.Style
}

func newModel(question string, def bool, r *lipgloss.Renderer) model {
	return model{
		question:      question,
		def:           def,
		questionStyle: r.NewStyle().Bold(true),
		hintStyle:     r.NewStyle().Faint(true),
		answerStyle:   r.NewStyle().Foreground(lipgloss.Color("12")),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.answer, m.answered = true, true
	case "n", "N":
		m.answer, m.answered = false, true
	case "enter":
		m.answer, m.answered = m.def, true
	case "ctrl+c", "esc":
		m.aborted = true
	case "ctrl+d":
		m.eof = true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m model) View() string {
	hint := "[y/N]"
	if m.def {
		hint = "[Y/n]"
	}

	return m.questionStyle.Render(m.question) + " " + m.hintStyle.Render(hint) + " " + m.answerView()
}

// answerView is what follows the question once the prompt is finished
func (m model) answerView() string {
	switch {
	case m.answered && m.answer:
		return m.answerStyle.Render("yes") + "\n"
	case m.answered:
		return m.answerStyle.Render("no") + "\n"
	case m.aborted, m.eof:
		return "\n"
	}
	return ""
}
