package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"craftcloud/internal/catalog"
	"craftcloud/internal/dashboard"
	"craftcloud/internal/deploy"
	"craftcloud/internal/domain"
	"craftcloud/internal/payment"
	"craftcloud/pkg/sdk"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/time/rate"
)

type Options struct {
	Session   *sdk.Session
	Refresher dashboard.Refresher
	Catalog   *catalog.Catalog
	Interval  time.Duration
	Logger    *slog.Logger
}

type Result struct {
	SessionExpired bool
}

type screen int

const (
	screenServers screen = iota
	screenCatalog
	screenDeployForm
	screenStore
)

type snapshotMsg domain.Snapshot
type transitionMsg deploy.Transition
type sessionEndedMsg struct{}
type actionResultMsg string
type clearMessageMsg struct{}

type deployDoneMsg struct {
	templateID string
	attempt    deploy.Attempt
	err        error
}

type model struct {
	ctx       context.Context
	session   *sdk.Session
	heartbeat *dashboard.Heartbeat
	tracker   *deploy.Tracker
	store     *payment.Store
	catalog   *catalog.Catalog
	limiter   *rate.Limiter

	screen  screen
	table   table.Model
	spinner spinner.Model

	servers []domain.ServerDetail
	user    *domain.UserProfile
	loaded  bool
	updated time.Time

	catalogCursor int
	deployStates  map[string]deploy.State
	deployErrors  map[string]string
	form          *deployForm

	storeCursor int
	provider    int

	message string
	expired bool
	width   int
	height  int
}

// RunDashboard drives the heartbeat, deploy tracker and store from one
// bubbletea program until the user quits or the session ends.
func RunDashboard(opts Options) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	heartbeat := dashboard.NewHeartbeat(dashboard.HeartbeatConfig{
		Refresher: opts.Refresher,
		Sink:      func(s domain.Snapshot) { program.Send(snapshotMsg(s)) },
		Context:   ctx,
		Logger:    opts.Logger,
	})
	tracker := deploy.NewTracker(deploy.TrackerConfig{
		Catalog:   opts.Catalog,
		Deployer:  opts.Session,
		Refresher: heartbeat,
		Observer:  func(tr deploy.Transition) { program.Send(transitionMsg(tr)) },
		Logger:    opts.Logger,
	})

	m := newModel(ctx, opts.Session, heartbeat, tracker, payment.NewStore(opts.Session, opts.Logger), opts.Catalog)
	program = tea.NewProgram(m, tea.WithAltScreen())

	opts.Session.OnChange(func(event sdk.SessionEvent) {
		if event == sdk.SessionInactive {
			program.Send(sessionEndedMsg{})
		}
	})

	if err := heartbeat.Start(opts.Interval); err != nil {
		return Result{}, err
	}
	finalModel, err := program.Run()
	heartbeat.Close()
	cancel()
	heartbeat.Wait()
	if err != nil {
		return Result{}, err
	}

	if fm, ok := finalModel.(model); ok {
		return Result{SessionExpired: fm.expired}, nil
	}
	return Result{}, nil
}

func newModel(ctx context.Context, session *sdk.Session, heartbeat *dashboard.Heartbeat, tracker *deploy.Tracker, store *payment.Store, games *catalog.Catalog) model {
	columns := []table.Column{
		{Title: "Sts", Width: 3},
		{Title: "ID", Width: 12},
		{Title: "Name", Width: 20},
		{Title: "Status", Width: 8},
		{Title: "CPU", Width: 8},
		{Title: "RAM", Width: 8},
		{Title: "Players", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		ctx:          ctx,
		session:      session,
		heartbeat:    heartbeat,
		tracker:      tracker,
		store:        store,
		catalog:      games,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 2),
		table:        t,
		spinner:      sp,
		deployStates: make(map[string]deploy.State),
		deployErrors: make(map[string]string),
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width - 10)
		m.table.SetHeight(msg.Height - 12)
		return m, nil
	case snapshotMsg:
		m.applySnapshot(domain.Snapshot(msg))
		return m, nil
	case transitionMsg:
		m.deployStates[msg.TemplateID] = msg.To
		if msg.Err != nil {
			m.deployErrors[msg.TemplateID] = sdk.Message(msg.Err)
		} else {
			delete(m.deployErrors, msg.TemplateID)
		}
		return m, nil
	case deployDoneMsg:
		return m.handleDeployDone(msg)
	case actionResultMsg:
		m.message = string(msg)
		return m, clearMessageAfter()
	case clearMessageMsg:
		m.message = ""
		return m, nil
	case sessionEndedMsg:
		m.expired = true
		return m, tea.Quit
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.screen {
		case screenCatalog:
			return m.updateCatalog(msg)
		case screenDeployForm:
			return m.updateDeployForm(msg)
		case screenStore:
			return m.updateStore(msg)
		default:
			return m.updateServers(msg)
		}
	}

	if m.screen == screenDeployForm && m.form != nil {
		cmd = m.form.update(msg)
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// applySnapshot replaces the fleet wholesale. A snapshot without a profile
// keeps the last known one on screen.
func (m *model) applySnapshot(snap domain.Snapshot) {
	m.loaded = true
	m.servers = snap.Servers
	if snap.User != nil {
		m.user = snap.User
	}
	m.updated = snap.Collected
	m.updateTable()
}

func (m model) updateServers(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "r":
		if !m.limiter.Allow() {
			m.message = "Slow down, refresh already requested"
			return m, clearMessageAfter()
		}
		m.heartbeat.RefreshNow()
		m.message = "Refreshing..."
		return m, clearMessageAfter()
	case "p", "s", "x":
		server, ok := m.selectedServer()
		if !ok {
			return m, nil
		}
		action := domain.PowerActionFor(server.Status)
		switch msg.String() {
		case "s":
			if server.Online() {
				m.message = fmt.Sprintf("Server %s is already online", server.Name)
				return m, clearMessageAfter()
			}
			action = sdk.PowerStart
		case "x":
			if !server.Online() {
				m.message = fmt.Sprintf("Server %s is not running (Status: %s)", server.Name, server.Status)
				return m, clearMessageAfter()
			}
			action = sdk.PowerStop
		}
		if !m.limiter.Allow() {
			m.message = "Slow down, too many power requests"
			return m, clearMessageAfter()
		}
		m.message = fmt.Sprintf("Sending %s to %s...", action, server.Name)
		return m, powerCmd(m.ctx, m.session, m.heartbeat, server.ID, action)
	case "c":
		m.screen = screenCatalog
		return m, nil
	case "b":
		m.screen = screenStore
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) selectedServer() (domain.ServerDetail, bool) {
	row := m.table.SelectedRow()
	if len(row) < 2 {
		return domain.ServerDetail{}, false
	}
	for _, s := range m.servers {
		if s.ID == row[1] {
			return s, true
		}
	}
	return domain.ServerDetail{}, false
}

func (m *model) updateTable() {
	rows := make([]table.Row, 0, len(m.servers))
	for _, s := range m.servers {
		status := "⚪"
		switch s.Status {
		case domain.StatusOnline:
			status = "🟢"
		case domain.StatusOffline:
			status = "🔴"
		}

		cpu, ram, players := "-", "-", "-"
		if u, ok := s.Usage(); ok {
			cpu = fmt.Sprintf("%.1f%%", u.CPU)
			ram = fmt.Sprintf("%.1f%%", u.RAM)
			players = fmt.Sprintf("%d", u.Players)
		}

		rows = append(rows, table.Row{status, s.ID, s.Name, s.Status, cpu, ram, players})
	}
	m.table.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := headerStyle.Render("CRAFTCLOUD")
	clock := subHeaderStyle.Render(time.Now().Format("Mon Jan 2 15:04:05"))

	account := "User: -"
	if m.user != nil {
		account = fmt.Sprintf("User: %s  |  Credits: %.2f", m.user.Username, m.user.Credits)
	}
	hostInfo := fmt.Sprintf("API: %s  |  %s  |  Servers: %d", m.session.Client().BaseURL(), account, len(m.servers))
	headerBox := baseStyle.
		Width(m.width-4).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Center, title, clock, " ", hostInfo))

	var body, help string
	switch m.screen {
	case screenCatalog:
		body, help = m.catalogView(), "↑/↓: navigate • enter: deploy • esc: back"
	case screenDeployForm:
		body, help = m.form.view(), "tab: next field • enter: deploy • esc: cancel"
	case screenStore:
		body, help = m.storeView(), "↑/↓: package • ←/→: provider • enter: buy • esc: back"
	default:
		body = m.table.View()
		if !m.loaded {
			body = fmt.Sprintf("%s Fetching servers...", m.spinner.View())
		}
		help = "↑/↓: navigate • p: power • s: start • x: stop • r: refresh • c: catalog • b: buy credits • q: quit"
	}

	container := baseStyle.
		Width(m.width - 4).
		Height(m.height - 12).
		Render(body)

	footerText := footerStyle.Render(help)
	if m.message != "" {
		footerText = fmt.Sprintf("%s\n%s", messageStyle.Render(m.message), footerText)
	}

	return lipgloss.JoinVertical(lipgloss.Center,
		headerBox,
		container,
		footerText,
	)
}

func clearMessageAfter() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

func powerCmd(ctx context.Context, session *sdk.Session, heartbeat *dashboard.Heartbeat, id, action string) tea.Cmd {
	return func() tea.Msg {
		if _, err := session.Power(ctx, id, action); err != nil {
			if errors.Is(err, sdk.ErrInvalidated) {
				return nil
			}
			return actionResultMsg(fmt.Sprintf("Failed to %s %s: %s", action, id, sdk.Message(err)))
		}
		heartbeat.RefreshNow()
		return actionResultMsg(fmt.Sprintf("%s command sent to %s", action, id))
	}
}
