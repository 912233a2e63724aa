package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type workDoneMsg struct{}

type spinnerModel struct {
	spinner  spinner.Model
	label    string
	done     bool
	canceled bool
}

func newSpinnerModel(label string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.canceled = true
			return m, tea.Quit
		}
	case workDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.label)
}

// withSpinner runs fn while a spinner is shown on an interactive
// terminal. Pressing q or ctrl+c cancels fn's context.
func withSpinner[T any](ctx context.Context, e *env, label string, fn func(context.Context) (T, error)) (T, error) {
	if !e.interactive() {
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		result T
		err    error
	)
	done := make(chan struct{})
	p := tea.NewProgram(newSpinnerModel(label), tea.WithOutput(e.stderr))
	go func() {
		defer close(done)
		result, err = fn(ctx)
		p.Send(workDoneMsg{})
	}()

	final, runErr := p.Run()
	if runErr != nil {
		e.logger.Debug("spinner stopped", "err", runErr)
	}
	if m, ok := final.(spinnerModel); ok && m.canceled {
		cancel()
	}
	<-done
	return result, err
}
