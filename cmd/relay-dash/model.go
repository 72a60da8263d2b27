package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relay/pkg/eventlog"
)

// tickMsg is sent by Bubble Tea on every tick interval.
// Used to trigger periodic refresh from the event log.
type tickMsg time.Time

// eventsMsg carries fetched events and the latest context id.
// nil events means the event log is unavailable.
type eventsMsg struct {
	events    []eventlog.Event
	contextID string
}

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchEventsCmd returns a tea.Cmd that reads recent events from the log.
func fetchEventsCmd(dbPath string) tea.Cmd {
	return func() tea.Msg {
		events, contextID, _ := fetchLatest(context.Background(), dbPath)
		return eventsMsg{events: events, contextID: contextID}
	}
}

// fetchLatest reads the latest context id and its recent events. A
// missing database is reported as an error so robot mode can fail
// loudly; the TUI just shows an offline banner.
func fetchLatest(ctx context.Context, dbPath string) ([]eventlog.Event, string, error) {
	r, err := eventlog.NewReader(dbPath)
	if err != nil {
		return nil, "", err
	}
	defer r.Close()

	contextID, err := r.LatestContextID(ctx)
	if err != nil {
		return nil, "", err
	}
	events, err := r.QueryEvents(ctx, eventlog.QueryOpts{Limit: 50})
	if err != nil {
		return nil, contextID, err
	}
	return events, contextID, nil
}

// Model is the Bubble Tea model for the relay dashboard.
type Model struct {
	dbPath string
	theme  Theme

	contextID string
	online    bool
	events    []eventlog.Event

	table table.Model

	width  int
	height int
}

// newModel creates a new Model reading from dbPath.
func newModel(dbPath string) Model {
	t := DefaultTheme()

	cols := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Type", Width: 14},
		{Title: "From", Width: 14},
		{Title: "To", Width: 14},
		{Title: "Message", Width: 40},
	}
	tbl := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(20))

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(t.Primary)
	styles.Selected = styles.Selected.Foreground(t.Secondary).Bold(true)
	tbl.SetStyles(styles)

	return Model{dbPath: dbPath, theme: t, table: tbl}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchEventsCmd(m.dbPath), tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchEventsCmd(m.dbPath)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-6, 5))

	case tickMsg:
		return m, tea.Batch(fetchEventsCmd(m.dbPath), tickCmd())

	case eventsMsg:
		m.online = msg.events != nil
		m.events = msg.events
		m.contextID = msg.contextID
		m.table.SetRows(eventRows(msg.events))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// eventRows converts events into table rows, newest first.
func eventRows(events []eventlog.Event) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, e := range events {
		rows = append(rows, table.Row{
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Type,
			e.FromRole,
			e.ToRole,
			e.Message,
		})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary)
	mutedStyle := lipgloss.NewStyle().Foreground(m.theme.Muted)

	header := titleStyle.Render("relay pipeline")
	if !m.online {
		header += "  " + lipgloss.NewStyle().Foreground(m.theme.Error).Render("event log offline")
	} else if m.contextID != "" {
		role := ""
		if len(m.events) > 0 {
			role = m.events[0].ToRole
		}
		header += "  " + statusLine(m.theme, m.contextID, role)
	}

	help := mutedStyle.Render("q quit · r refresh")
	return fmt.Sprintf("%s\n\n%s\n\n%s\n", header, m.table.View(), help)
}

// statusLine renders the active context and role with role-appropriate
// coloring.
func statusLine(t Theme, contextID, role string) string {
	roleStyle := lipgloss.NewStyle().Foreground(t.Secondary)
	switch role {
	case "completed":
		roleStyle = roleStyle.Foreground(t.Success)
	case "blocked":
		roleStyle = roleStyle.Foreground(t.Error)
	}
	return fmt.Sprintf("%s %s",
		lipgloss.NewStyle().Foreground(t.Muted).Render(contextID),
		roleStyle.Render(role))
}
