package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"decisionctl/internal/eventstream"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxEventsPerTick = 64
	tickInterval     = 100 * time.Millisecond
	defaultHighlight = 2500 * time.Millisecond
	minEventsWidth   = 24
	maxEventsWidth   = 44
	minMainWidth     = 30
	minContentHeight = 6
)

var errUnhealthy = errors.New("backend reported unhealthy")

type viewKind int

const (
	viewQuick viewKind = iota
	viewWork
	viewLedger
)

var viewOrder = []viewKind{viewQuick, viewWork, viewLedger}

func (v viewKind) String() string {
	switch v {
	case viewWork:
		return "Work"
	case viewLedger:
		return "Ledger"
	default:
		return "Quick"
	}
}

type uiMode int

const (
	uiModeNormal uiMode = iota
	uiModePicker
	uiModeConflict
	uiModeLinks
)

type Options struct {
	Logger               logging.Logger
	Mode                 types.QualityMode
	TokenSaving          bool
	Highlight            time.Duration
	EventLogLimit        int
	ReconnectMaxInterval time.Duration
	InitialProject       string
	BaseURL              string
}

// focusTarget is a navigable record reference: a citation link in the main
// pane or an id pill in the notification log.
type focusTarget struct {
	recordID string
	token    string
}

type Model struct {
	api     API
	logger  logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	channel *eventstream.Channel
	stream  *PipelineStreamController
	scope   *projectScope

	projects       []*types.Project
	pickerWanted   bool
	initialProject string
	baseURL        string

	view       viewKind
	mode       uiMode
	viewport   viewport.Model
	quickInput textinput.Model
	workInput  textinput.Model
	picker     *ProjectPicker
	loader     spinner.Model

	width       int
	height      int
	mainWidth   int
	eventsWidth int
	status      string
	quality     types.QualityMode
	tokenSaving bool
	highlight   time.Duration

	ledgerFilter   types.MemoryType
	ledgerRows     []string
	ledgerLines    []int
	ledgerSelected int
	highlightID    string
	highlightUntil time.Time
	deleteArmed    string

	mainLinks  []focusTarget
	eventLinks []focusTarget
	linkIndex  int
	eventsView string

	notices notices

	now func() time.Time
}

func NewModel(api API, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	quality := opts.Mode
	if quality == "" {
		quality = types.QualityBalanced
	}
	highlight := opts.Highlight
	if highlight <= 0 {
		highlight = defaultHighlight
	}
	ctx, cancel := context.WithCancel(context.Background())

	vp := viewport.New(minMainWidth, minContentHeight)
	quickInput := textinput.New()
	quickInput.Prompt = "quick> "
	quickInput.Placeholder = "share an update or ask about the project"
	workInput := textinput.New()
	workInput.Prompt = "work> "
	loader := spinner.New()
	loader.Spinner = spinner.Line
	loader.Style = pendingStyle

	scope := newProjectScope(api, opts.EventLogLimit, logger)
	channel := eventstream.NewChannel(api,
		eventstream.WithLogger(logging.Component(logger, "stream")),
		eventstream.WithReconnectInterval(0, opts.ReconnectMaxInterval),
	)

	m := Model{
		api:            api,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		channel:        channel,
		stream:         NewPipelineStreamController(scope.log, maxEventsPerTick),
		scope:          scope,
		initialProject: strings.TrimSpace(opts.InitialProject),
		baseURL:        opts.BaseURL,
		viewport:       vp,
		quickInput:     quickInput,
		workInput:      workInput,
		picker:         NewProjectPicker(),
		loader:         loader,
		quality:        quality,
		tokenSaving:    opts.TokenSaving,
		highlight:      highlight,
		linkIndex:      -1,
		now:            time.Now,
	}
	m.quickInput.Focus()
	m.refreshContent()
	return m
}

func Run(api API, opts Options) error {
	model := NewModel(api, opts)
	defer model.Close()
	p := tea.NewProgram(&model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Close tears down the push channel.
func (m *Model) Close() {
	m.channel.Disconnect()
	m.cancel()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(checkHealthCmd(m.api), fetchProjectsCmd(m.api), tickCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tickMsg:
		return m, m.handleTick(time.Time(msg))
	case healthMsg:
		m.handleHealth(msg)
		return m, nil
	case projectsMsg:
		return m, m.handleProjects(msg)
	case projectLoadedMsg:
		return m, m.handleProjectLoaded(msg)
	case ledgerRefreshedMsg:
		m.handleLedgerRefreshed(msg)
		return m, nil
	case quickReplyMsg:
		return m, m.handleQuickReply(msg)
	case workStartedMsg:
		m.handleWorkStarted(msg)
		return m, nil
	case workReplyMsg:
		m.handleWorkReply(msg)
		return m, nil
	case workEndedMsg:
		return m, m.handleWorkEnded(msg)
	case conflictResolvedMsg:
		return m, m.handleConflictResolved(msg)
	case navigateMsg:
		m.handleNavigate(msg)
		return m, nil
	case memoryDetailMsg:
		m.handleMemoryDetail(msg)
		return m, nil
	case memoryDeletedMsg:
		return m, m.handleMemoryDeleted(msg)
	}
	return m, nil
}

func (m *Model) handleTick(at time.Time) tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	tick := m.stream.ConsumeTick()
	dirty := tick.changed
	if tick.closed {
		m.logger.Debug("push channel drained", logging.F("project", m.scope.projectID()))
	}
	if tick.refreshLedger && m.scope.selected() {
		m.scope.cache.Invalidate()
		cmds = append(cmds, refreshLedgerCmd(m.scope.cache, m.scope.gen))
	}
	if m.highlightID != "" && !at.Before(m.highlightUntil) {
		m.highlightID = ""
		m.highlightUntil = time.Time{}
		dirty = true
	}
	m.notices.expire(at)
	if m.busy() {
		m.loader, _ = m.loader.Update(spinner.TickMsg{Time: at, ID: m.loader.ID()})
		dirty = true
	}
	if dirty {
		m.refreshContent()
	}
	return tea.Batch(cmds...)
}

func (m *Model) busy() bool {
	return m.scope.loading || m.scope.quickInflight > 0 || m.scope.work.Pending() || m.scope.work.Starting() || m.scope.conflict.Submitting()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.eventsWidth = clamp(width/3, minEventsWidth, maxEventsWidth)
	m.mainWidth = max(minMainWidth, width-m.eventsWidth-1)
	m.viewport.Width = m.mainWidth
	m.viewport.Height = m.contentHeight()
	m.quickInput.Width = max(10, width-len(m.quickInput.Prompt)-2)
	m.workInput.Width = max(10, width-len(m.workInput.Prompt)-2)
	m.refreshContent()
}

// contentHeight is what remains after the header, optional banner, input,
// footer and help lines.
func (m *Model) contentHeight() int {
	fixed := 4
	if m.notices.banner != "" {
		fixed++
	}
	return max(minContentHeight, m.height-fixed)
}

func (m *Model) setView(view viewKind) {
	if m.view == view {
		return
	}
	m.view = view
	m.quickInput.Blur()
	m.workInput.Blur()
	switch view {
	case viewQuick:
		m.quickInput.Focus()
	case viewWork:
		m.workInput.Focus()
	}
	m.deleteArmed = ""
	m.refreshContent()
}

func (m *Model) cycleView(delta int) {
	idx := 0
	for i, v := range viewOrder {
		if v == m.view {
			idx = i
		}
	}
	idx = (idx + delta + len(viewOrder)) % len(viewOrder)
	m.setView(viewOrder[idx])
}

func (m *Model) switchProject(project *types.Project) tea.Cmd {
	if project == nil {
		return nil
	}
	m.channel.Disconnect()
	m.stream.Reset()
	m.scope.reset(project)
	m.ledgerFilter = ""
	m.ledgerSelected = 0
	m.highlightID = ""
	m.deleteArmed = ""
	m.linkIndex = -1
	m.quickInput.Reset()
	m.workInput.Reset()
	m.status = "loading " + project.DisplayName()
	m.logger.Info("project selected", logging.F("project", project.ID))
	m.refreshContent()
	return loadProjectCmd(m.api, m.scope.cache, m.scope.gen, project.ID)
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading…"
	}
	lines := []string{m.headerLine()}
	if banner := m.notices.banner; banner != "" {
		lines = append(lines, bannerStyle.Width(m.width).Render(truncateToWidth(banner, m.width-2)))
	}
	height := m.contentHeight()
	main := padBlock(m.mainPane(height), m.mainWidth, height)
	events := padBlock(m.eventsView, m.eventsWidth, height)
	divider := dividerStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, main, divider, events))
	lines = append(lines, m.inputLine())
	if notice := m.notices.line(m.width); notice != "" {
		lines = append(lines, notice)
	} else {
		lines = append(lines, statusStyle.Render(truncateToWidth(m.status, m.width)))
	}
	lines = append(lines, renderStatusLine(m.width, helpStyle.Render(m.helpText()), statusStyle.Render(m.modeLabel())))
	return strings.Join(lines, "\n")
}

func (m *Model) mainPane(height int) string {
	switch m.mode {
	case uiModePicker:
		return lipgloss.Place(m.mainWidth, height, lipgloss.Center, lipgloss.Center, m.picker.View(m.mainWidth))
	case uiModeConflict:
		return lipgloss.Place(m.mainWidth, height, lipgloss.Center, lipgloss.Center, m.conflictModalView(m.mainWidth))
	}
	return m.viewport.View()
}

func (m *Model) headerLine() string {
	project := "no project"
	if m.scope.selected() {
		project = m.scope.project.DisplayName()
	}
	parts := []string{headerStyle.Render("decisionctl"), statusStyle.Render(project)}
	for _, v := range viewOrder {
		if v == m.view {
			parts = append(parts, tabActiveStyle.Render(v.String()))
		} else {
			parts = append(parts, tabStyle.Render(v.String()))
		}
	}
	if m.busy() {
		parts = append(parts, m.loader.View())
	}
	return truncateToWidth(strings.Join(parts, " "), m.width)
}

func (m *Model) inputLine() string {
	switch m.view {
	case viewQuick:
		return m.quickInput.View()
	case viewWork:
		if m.scope.work.Active() {
			m.workInput.Placeholder = "message the session"
		} else {
			m.workInput.Placeholder = "describe a task to start a work session"
		}
		return m.workInput.View()
	}
	return mutedStyle.Render(m.ledgerFilterLabel())
}

func (m *Model) modeLabel() string {
	label := "mode " + string(m.quality)
	if m.tokenSaving {
		label += " · token saving"
	}
	return label
}

func (m *Model) helpText() string {
	switch m.mode {
	case uiModePicker:
		return "↑/↓ select · enter open · esc cancel"
	case uiModeConflict:
		return "k keep existing · o override · esc dismiss"
	case uiModeLinks:
		return "←/→ cycle links · enter open · ctrl+y copy · esc done"
	}
	switch m.view {
	case viewQuick:
		return "enter send · alt+←/→ turns · ctrl+l links · ctrl+p project · tab view · ctrl+c quit"
	case viewWork:
		return "enter send · ctrl+e end session · ctrl+l links · ctrl+p project · tab view"
	}
	return "↑/↓ move · f/F filter · a all · enter detail · D supersede · ctrl+y copy · tab view"
}
