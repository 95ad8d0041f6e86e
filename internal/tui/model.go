// Package tui is the terminal front end of a tutorial session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bhandras/stepwise/internal/entitlement"
	"github.com/bhandras/stepwise/internal/tutorial"
	"github.com/bhandras/stepwise/internal/uievents"
)

const (
	textUnavailable = "Step-by-step tutorials are currently unavailable."
	textUpsell      = "Step-by-step tutorials are available for Plus users."
	textIntake      = "What are you trying to code?"
	textPlaceholder = "Describe the problem you want help with..."
	textLoading     = "Loading..."
	textComplete    = "You reached the end of this tutorial."

	actionTimeout = 5 * time.Second
)

// Session is the part of *tutorial.Session the view drives.
type Session interface {
	Start(ctx context.Context, problem string) error
	Stuck(ctx context.Context, problem string) error
	Restart(ctx context.Context) error
	Next(ctx context.Context) error
	Hint(ctx context.Context) error
	InstructionHint(ctx context.Context) error
	Reset(ctx context.Context) error
	State() tutorial.State
	Subscribe(fn func(tutorial.State)) (cancel func())
}

// Config wires the view to its collaborators.
type Config struct {
	Session Session
	Gate    entitlement.Gate
	Bus     *uievents.Bus
}

type accessMsg struct{ access entitlement.Access }

type stateMsg struct{ state tutorial.State }

type actionErrMsg struct{ err error }

// Model is the bubbletea model of the tutorial view.
type Model struct {
	session Session
	gate    entitlement.Gate
	bus     *uievents.Bus

	access  *entitlement.Access
	state   tutorial.State
	updates chan tutorial.State
	cancel  func()

	textarea textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	styles   styles

	width  int
	notice string
	err    error
}

// New returns the view model and subscribes it to session updates. Call
// Close when the program exits.
func New(cfg Config) *Model {
	ta := textarea.New()
	ta.Placeholder = textPlaceholder
	ta.ShowLineNumbers = false
	ta.SetHeight(4)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		session:  cfg.Session,
		gate:     cfg.Gate,
		bus:      cfg.Bus,
		state:    cfg.Session.State(),
		updates:  make(chan tutorial.State, 1),
		textarea: ta,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeys(),
		styles:   newStyles(),
	}
	m.cancel = cfg.Session.Subscribe(m.publish)
	return m
}

// publish hands the newest state to the UI loop without ever blocking the
// session; an undelivered older snapshot is replaced.
func (m *Model) publish(s tutorial.State) {
	for {
		select {
		case m.updates <- s:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

// Close unsubscribes from the session.
func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.checkAccess(), m.waitForState(), m.spinner.Tick, textarea.Blink)
}

func (m *Model) checkAccess() tea.Cmd {
	gate := m.gate
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return accessMsg{access: gate.Check(ctx)}
	}
}

func (m *Model) waitForState() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{state: s}
	}
}

// do runs a session action off the UI loop.
func (m *Model) do(action func(ctx context.Context) error) tea.Cmd {
	m.err = nil
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if err := action(ctx); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.textarea.SetWidth(max(msg.Width-4, 20))
		m.help.Width = msg.Width
		return m, nil

	case accessMsg:
		m.access = &msg.access
		return m, nil

	case stateMsg:
		wasActive := m.state.Active()
		m.state = msg.state
		if wasActive && !m.state.Active() {
			m.textarea.Reset()
			m.textarea.Focus()
		}
		return m, m.waitForState()

	case actionErrMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.intake() {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) intake() bool {
	return m.access != nil && m.access.Allowed() && !m.state.Active()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch {
	case m.access == nil:
		return m, nil

	case !m.access.Allowed():
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case m.access.Enabled && key.Matches(msg, m.keys.LearnMore):
			if m.bus != nil {
				m.bus.Dispatch(uievents.ShowPlusDialog)
			}
			m.notice = "Opening subscription details..."
		}
		return m, nil

	case m.intake():
		return m.handleIntakeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		if m.state.IsLastStep {
			return m, nil
		}
		return m, m.do(m.session.Next)
	case key.Matches(msg, m.keys.Hint):
		if m.state.Step == "" {
			return m, nil
		}
		return m, m.do(m.session.Hint)
	case key.Matches(msg, m.keys.InstructionHint):
		if m.state.Step == "" {
			return m, nil
		}
		return m, m.do(m.session.InstructionHint)
	case key.Matches(msg, m.keys.Restart):
		return m, m.do(m.session.Restart)
	case key.Matches(msg, m.keys.Reset):
		return m, m.do(m.session.Reset)
	}
	return m, nil
}

func (m *Model) handleIntakeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Start), key.Matches(msg, m.keys.Stuck):
		problem := m.textarea.Value()
		if strings.TrimSpace(problem) == "" {
			return m, nil
		}
		begin := m.session.Start
		if key.Matches(msg, m.keys.Stuck) {
			begin = m.session.Stuck
		}
		return m, m.do(func(ctx context.Context) error {
			return begin(ctx, problem)
		})
	case msg.Type == tea.KeyEsc:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	switch {
	case m.access == nil:
		fmt.Fprintf(&b, "%s Checking subscription...\n", m.spinner.View())

	case !m.access.Enabled:
		b.WriteString(textUnavailable + "\n")

	case !m.access.Allowed():
		b.WriteString(textUpsell + "\n\n")
		if m.notice != "" {
			b.WriteString(m.styles.Subtle.Render(m.notice) + "\n\n")
		}
		b.WriteString(m.help.View(bindings{m.keys.LearnMore, m.keys.Quit}))

	case !m.state.Active():
		b.WriteString(m.styles.Label.Render(textIntake) + "\n")
		b.WriteString(m.styles.Textarea.Render(m.textarea.View()) + "\n")
		b.WriteString(m.help.View(bindings{m.keys.Start, m.keys.Stuck}))

	case m.state.Step == "":
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), textLoading)
		b.WriteString(m.help.View(bindings{m.keys.Restart, m.keys.Reset, m.keys.Quit}))

	default:
		b.WriteString(m.viewStep())
	}

	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		b.WriteString("\n" + m.styles.Error.Render("Error: "+m.err.Error()))
	}
	return b.String() + "\n"
}

func (m *Model) viewStep() string {
	var b strings.Builder
	width := max(m.width-2, 20)
	body := m.styles.Body.Width(width)

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Step %d", m.state.StepIndex)) + "\n")
	b.WriteString(body.Render(m.state.Step) + "\n")

	if m.state.StepHint != "" {
		b.WriteString(m.styles.Hint.Width(width).Render(m.state.StepHint) + "\n")
	}
	if m.state.StepInstructionHint != "" {
		b.WriteString(m.styles.Subtle.Width(width).Render(m.state.StepInstructionHint) + "\n")
	}
	if m.state.Loading() {
		b.WriteString(m.spinner.View() + "\n")
	}
	if m.state.IsLastStep {
		b.WriteString("\n" + m.styles.Success.Render(textComplete) + "\n")
	}

	keys := bindings{}
	if !m.state.IsLastStep {
		keys = append(keys, m.keys.Next)
	}
	keys = append(keys, m.keys.Hint, m.keys.InstructionHint, m.keys.Restart, m.keys.Reset, m.keys.Quit)
	b.WriteString("\n" + m.help.View(keys))
	return b.String()
}

// Run shows the tutorial view until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	m := New(cfg)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
