// Package prompt collects sync input interactively and renders command
// summaries for the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/version"
)

// ErrCancelled is returned when the operator aborts a prompt.
var ErrCancelled = errors.New("cancelled")

const (
	fieldVersion = iota
	fieldDate
	fieldYear
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6BCB77")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

// Form asks for the version, release date and year of a sync.
type Form struct {
	inputs    []textinput.Model
	labels    []string
	focus     int
	err       string
	submitted bool
	cancelled bool
}

// NewForm prefills the form with whatever r already carries. Date and
// year left blank default to today.
func NewForm(r pipeline.Request) Form {
	return newForm(r, time.Now())
}

func newForm(r pipeline.Request, today time.Time) Form {
	f := Form{labels: []string{"Version", "Date", "Year"}}

	v := textinput.New()
	v.Placeholder = "1.58"
	v.SetValue(r.Version)
	v.CharLimit = 32

	d := textinput.New()
	d.Placeholder = pipeline.FormatDate(today)
	d.SetValue(r.Date)
	d.CharLimit = 10

	y := textinput.New()
	y.Placeholder = strconv.Itoa(today.Year())
	if r.Year != 0 {
		y.SetValue(strconv.Itoa(r.Year))
	}
	y.CharLimit = 4

	f.inputs = []textinput.Model{v, d, y}
	f.inputs[fieldVersion].Focus()
	return f
}

func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

func (f Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			f.cancelled = true
			return f, tea.Quit
		case "tab", "down":
			return f.move(1), nil
		case "shift+tab", "up":
			return f.move(-1), nil
		case "enter":
			if f.focus < len(f.inputs)-1 {
				return f.move(1), nil
			}
			if _, err := f.Request(); err != nil {
				f.err = err.Error()
				return f, nil
			}
			f.submitted = true
			return f, tea.Quit
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f Form) move(delta int) Form {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
	f.err = ""
	return f
}

func (f Form) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sync release"))
	b.WriteString("\n")
	for i, in := range f.inputs {
		b.WriteString(labelStyle.Render(f.labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("tab next field · enter submit · esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// Request reads the form fields, falling back to the placeholder for a
// blank date or year. Only the shape is checked here; range checks happen
// in the pipeline.
func (f Form) Request() (pipeline.Request, error) {
	r := pipeline.Request{
		Version: strings.TrimSpace(f.inputs[fieldVersion].Value()),
		Date:    f.value(fieldDate),
	}
	if !version.Valid(r.Version) {
		return r, fmt.Errorf("version %q must be dotted numbers", r.Version)
	}
	if err := pipeline.ValidateDate(r.Date); err != nil {
		return r, fmt.Errorf("date %q must be DD/MM/YYYY", r.Date)
	}
	year, err := strconv.Atoi(f.value(fieldYear))
	if err != nil {
		return r, fmt.Errorf("year must be a number")
	}
	r.Year = year
	return r, nil
}

func (f Form) value(field int) string {
	if v := strings.TrimSpace(f.inputs[field].Value()); v != "" {
		return v
	}
	return f.inputs[field].Placeholder
}

// RunForm shows the form on out until it is submitted or cancelled.
func RunForm(ctx context.Context, in io.Reader, out io.Writer, r pipeline.Request) (pipeline.Request, error) {
	p := tea.NewProgram(NewForm(r), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	m, err := p.Run()
	if err != nil {
		return r, fmt.Errorf("run form: %w", err)
	}
	f := m.(Form)
	if f.cancelled || !f.submitted {
		return r, ErrCancelled
	}
	return f.Request()
}
