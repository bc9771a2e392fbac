package prompt

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Confirm is a yes/no question.
type Confirm struct {
	question string
	answer   bool
	answered bool
}

func NewConfirm(question string) Confirm {
	return Confirm{question: question}
}

func (c Confirm) Init() tea.Cmd {
	return nil
}

func (c Confirm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}
	switch key.String() {
	case "y", "Y":
		c.answer, c.answered = true, true
		return c, tea.Quit
	case "n", "N", "enter", "esc", "ctrl+c":
		c.answer, c.answered = false, true
		return c, tea.Quit
	}
	return c, nil
}

func (c Confirm) View() string {
	if c.answered {
		return ""
	}
	return fmt.Sprintf("%s %s ", c.question, hintStyle.UnsetMarginTop().Render("[y/N]"))
}

// Answer reports whether the question was accepted.
func (c Confirm) Answer() bool {
	return c.answered && c.answer
}

// Ask runs a Confirm on out and returns the answer.
func Ask(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	p := tea.NewProgram(NewConfirm(question), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	m, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("run confirm: %w", err)
	}
	return m.(Confirm).Answer(), nil
}
