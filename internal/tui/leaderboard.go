// Package tui implements the operator console: a local, ephemeral
// bubbletea dashboard that mirrors the pipeline's snapshot/event stream
// for a person watching the process run. It has no bearing on bus
// semantics; closing it does not stop ingestion, recording, or
// publishing.
package tui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/bcdxn/f1mqtt/internal/domain"
	"github.com/bcdxn/f1mqtt/internal/pipeline"
	"github.com/bcdxn/f1mqtt/internal/tui/styles"
	"github.com/bcdxn/f1mqtt/tealogger"
)

var s = styles.Default()

// SnapshotMsg carries one pipeline update into the bubbletea event loop.
type SnapshotMsg pipeline.Update

// Observer adapts a running *tea.Program into a pipeline.Observer, so the
// console can subscribe to a Pipeline or playback Controller the same way
// the publisher does.
type Observer struct {
	program *tea.Program
}

// NewObserver returns an Observer that forwards updates to program.
func NewObserver(program *tea.Program) Observer {
	return Observer{program: program}
}

func (o Observer) OnEvent(domain.Event) {}

func (o Observer) OnUpdate(u pipeline.Update) {
	o.program.Send(SnapshotMsg(u))
}

// NewLeaderboard returns the operator console's bubbletea program.
func NewLeaderboard(opts ...TUIOption) *tea.Program {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	l := Leaderboard{
		snapshot:           domain.NewSnapshot(),
		logger:             tealogger.New("tui"),
		ctx:                context.Background(),
		table:              newTable(),
		isLoadingReference: true,
		spinner:            sp,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return tea.NewProgram(l, tea.WithContext(l.ctx))
}

type TUIOption = func(l *Leaderboard)

// WithLogger configures the logger used within the console program.
func WithLogger(l tealogger.Logger) TUIOption {
	return func(m *Leaderboard) { m.logger = l }
}

// WithContext configures the context used within the console program.
func WithContext(ctx context.Context) TUIOption {
	return func(m *Leaderboard) { m.ctx = ctx }
}

/* Bubbletea Interface Implementation
------------------------------------------------------------------------------------------------- */

func (l Leaderboard) Init() tea.Cmd {
	return l.spinner.Tick
}

func (l Leaderboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyMsg(l, msg)
	case tea.WindowSizeMsg:
		return handleWindowSizeMsg(l, msg)
	case SnapshotMsg:
		return handleSnapshotMsg(l, msg)
	default:
		if l.isLoadingReference {
			var cmd tea.Cmd
			l.spinner, cmd = l.spinner.Update(msg)
			return l, cmd
		}
	}
	return l, nil
}

func (l Leaderboard) View() string {
	if l.width == 0 {
		return "starting console..."
	}

	if l.isLoadingReference {
		return fmt.Sprintf("%s Connecting to F1 live timing...", l.spinner.View())
	}

	padding := lipgloss.PlaceHorizontal(
		l.width-4,
		lipgloss.Center,
		"",
		lipgloss.WithWhitespaceChars("."),
		lipgloss.WithWhitespaceForeground(s.Color.Subtle),
	)

	return s.Doc.Width(l.width).Render(lipgloss.JoinVertical(
		lipgloss.Top,
		titleView(l),
		subtitleView(l),
		flagView(l, padding),
		raceControlView(l, padding),
		tableView(l, padding),
	))
}

/* Tea Message handlers
------------------------------------------------------------------------------------------------- */

func handleKeyMsg(m Leaderboard, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.logger.Debug("received quit tea message")
		return m, tea.Quit
	}
	return m, nil
}

func handleWindowSizeMsg(m Leaderboard, msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	h, v := s.Doc.GetFrameSize()
	m.width = msg.Width - h
	m.height = msg.Height - v
	return m, nil
}

func handleSnapshotMsg(m Leaderboard, msg SnapshotMsg) (tea.Model, tea.Cmd) {
	if msg.Snapshot.SessionInfo != nil {
		m.isLoadingReference = false
	}
	m.snapshot = msg.Snapshot
	m.table = buildTable(m.snapshot)
	for _, e := range msg.Events {
		if fc, ok := e.(domain.FlagChangeEvent); ok {
			m.logger.Debugf("flag change: %s -> %s", fc.PreviousFlag, fc.NewFlag)
		}
	}
	return m, nil
}

/* View Helper Functions
------------------------------------------------------------------------------------------------- */

func titleView(m Leaderboard) string {
	title := "F1 Live Timing"
	if m.snapshot.SessionInfo != nil {
		title = m.snapshot.SessionInfo.Name
	}
	return s.TitleBar.Width(m.width - 4).Render(title)
}

func subtitleView(m Leaderboard) string {
	sub := ""
	if m.snapshot.SessionInfo != nil {
		sub = string(m.snapshot.SessionInfo.Type)
	}
	if m.snapshot.LapCount.Total > 0 {
		sub = fmt.Sprintf("%s: %d / %d Laps", sub, m.snapshot.LapCount.Current, m.snapshot.LapCount.Total)
	}
	return s.SubtitleBar.Width(m.width - 4).Render(sub)
}

func flagView(m Leaderboard, p string) string {
	style := s.FlagStyle(m.snapshot.TrackStatus.Flag)
	box := style.Padding(0, 2).Render(fmt.Sprintf("FLAG: %s", m.snapshot.TrackStatus.Flag))
	line := lipgloss.PlaceHorizontal(m.width-4, lipgloss.Center, box, lipgloss.WithWhitespaceChars("."), lipgloss.WithWhitespaceForeground(s.Color.Subtle))
	return lipgloss.JoinVertical(lipgloss.Top, p, line)
}

func raceControlView(m Leaderboard, p string) string {
	if m.snapshot.LatestRaceControlMessage == nil {
		return p
	}
	msg := m.snapshot.LatestRaceControlMessage.Message
	box := lipgloss.PlaceHorizontal(
		m.width-4,
		lipgloss.Center,
		s.ToastMsgBody.Width(m.width-10).Render(msg),
		lipgloss.WithWhitespaceChars(".."),
		lipgloss.WithWhitespaceForeground(s.Color.Subtle),
	)
	return lipgloss.JoinVertical(lipgloss.Top, p, box)
}

func tableView(m Leaderboard, p string) string {
	t := lipgloss.PlaceHorizontal(
		m.width-4,
		lipgloss.Center,
		m.table.View(),
		lipgloss.WithWhitespaceChars("."),
		lipgloss.WithWhitespaceForeground(s.Color.Subtle),
	)
	return lipgloss.JoinVertical(lipgloss.Top, p, t, p)
}

/* Table construction
------------------------------------------------------------------------------------------------- */

func newTable() table.Model {
	return table.New([]table.Column{
		table.NewColumn("position", "POS", 4),
		table.NewColumn("driver", "DRIVER", 8).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left)),
		table.NewColumn("gap", "GAP", 10),
		table.NewColumn("tyre", "TYRE", 8),
		table.NewColumn("status", "STATUS", 8),
	}).
		WithRows([]table.Row{}).
		WithBaseStyle(lipgloss.NewStyle().AlignHorizontal(lipgloss.Center))
}

func buildTable(snap domain.Snapshot) table.Model {
	nums := make([]string, 0, len(snap.Timing))
	for num := range snap.Timing {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return snap.Timing[nums[i]].Position < snap.Timing[nums[j]].Position })

	rows := make([]table.Row, 0, len(nums))
	for _, num := range nums {
		row := snap.Timing[num]
		driver := snap.Drivers[num]
		stint := snap.Stints[num]

		nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#" + driver.TeamColor)).PaddingLeft(1)
		gap := row.GapToLeader
		status := "racing"
		switch {
		case row.Retired:
			status = "retired"
		case row.InPit:
			status = "pit"
		}
		if row.Position == 1 {
			gap = "LEADER"
		}

		tyreStyle := lipgloss.NewStyle().Foreground(s.TireColor(stint.Compound))

		rows = append(rows, table.NewRow(table.RowData{
			"position": row.Position,
			"driver":   nameStyle.Render(driver.Abbreviation),
			"gap":      gap,
			"tyre":     table.NewStyledCell(string(stint.Compound), tyreStyle),
			"status":   status,
		}))
	}

	return newTable().WithRows(rows)
}

/* Type Definitions
------------------------------------------------------------------------------------------------- */

type Leaderboard struct {
	snapshot           domain.Snapshot
	logger             tealogger.Logger
	ctx                context.Context
	width              int
	height             int
	table              table.Model
	isLoadingReference bool
	spinner            spinner.Model
}
