package app

import (
	"errors"

	"decisionctl/internal/citation"
	"decisionctl/internal/client"
	"decisionctl/internal/conflict"
	"decisionctl/internal/logging"
	"decisionctl/internal/quickchat"
	"decisionctl/internal/types"
	"decisionctl/internal/worksession"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" || key == "ctrl+q" {
		m.Close()
		return tea.Quit
	}
	switch m.mode {
	case uiModePicker:
		return m.handlePickerKey(msg)
	case uiModeConflict:
		return m.handleConflictKey(key)
	case uiModeLinks:
		return m.handleLinkKey(key)
	}
	switch key {
	case "tab":
		m.cycleView(1)
		return nil
	case "shift+tab":
		m.cycleView(-1)
		return nil
	case "ctrl+p":
		return m.openPicker()
	case "ctrl+o":
		m.openConflict()
		return nil
	case "esc":
		if !(m.view == viewLedger && m.scope.detail != nil) && m.dismissPendingConflict() {
			return nil
		}
	case "ctrl+l":
		m.focusLinks()
		return nil
	case "ctrl+t":
		m.quality = m.quality.Next()
		return nil
	case "ctrl+s":
		m.tokenSaving = !m.tokenSaving
		return nil
	case "ctrl+r":
		return m.refreshLedger()
	case "ctrl+y":
		m.copyRecordID(m.selectedRecordID())
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	switch m.view {
	case viewQuick:
		return m.handleQuickKey(msg)
	case viewWork:
		return m.handleWorkKey(msg)
	default:
		return m.handleLedgerKey(key)
	}
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closePicker()
		return nil
	case "up", "ctrl+k":
		m.picker.Move(-1)
		return nil
	case "down", "ctrl+j":
		m.picker.Move(1)
		return nil
	case "enter":
		project := m.picker.Selected()
		m.closePicker()
		if project == nil {
			return nil
		}
		if project.ID == m.scope.projectID() && !m.scope.loading {
			return nil
		}
		return m.switchProject(project)
	}
	return m.picker.Update(msg)
}

func (m *Model) handleQuickKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return m.submitQuick()
	case "alt+left":
		m.moveTurn(-1)
		return nil
	case "alt+right":
		m.moveTurn(1)
		return nil
	case "[", "]":
		if m.quickInput.Value() == "" {
			if msg.String() == "[" {
				m.moveTurn(-1)
			} else {
				m.moveTurn(1)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	m.quickInput, cmd = m.quickInput.Update(msg)
	return cmd
}

func (m *Model) moveTurn(delta int) {
	moved := false
	if delta < 0 {
		moved = m.scope.turns.Prev()
	} else {
		moved = m.scope.turns.Next()
	}
	if moved {
		m.linkIndex = -1
		m.refreshContent()
	}
}

func (m *Model) submitQuick() tea.Cmd {
	text, err := quickchat.Validate(m.quickInput.Value(), m.scope.selected())
	if err != nil {
		if errors.Is(err, quickchat.ErrNoProject) {
			m.notifyWarning("select a project first (ctrl+p)")
		}
		return nil
	}
	m.scope.quickInflight++
	m.quickInput.Reset()
	m.status = "sending quick update"
	m.refreshContent()
	return quickChatCmd(m.api, m.scope.gen, m.scope.projectID(), text, m.quality)
}

func (m *Model) handleWorkKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return m.submitWork()
	case "ctrl+e":
		return m.endWork()
	}
	var cmd tea.Cmd
	m.workInput, cmd = m.workInput.Update(msg)
	return cmd
}

func (m *Model) submitWork() tea.Cmd {
	work := m.scope.work
	if !work.Active() {
		task, err := work.BeginStart(m.workInput.Value(), m.scope.selected())
		if err != nil {
			m.showWorkError(err)
			return nil
		}
		m.workInput.Reset()
		m.refreshContent()
		return startWorkCmd(m.api, m.scope.gen, m.scope.projectID(), task)
	}
	message, err := work.BeginSend(m.workInput.Value())
	if err != nil {
		m.showWorkError(err)
		return nil
	}
	m.workInput.Reset()
	m.refreshContent()
	req := client.WorkMessageRequest{Message: message.Content, Mode: m.quality, TokenSaving: m.tokenSaving}
	return sendWorkCmd(m.api, m.scope.gen, m.scope.projectID(), work.SessionID(), req)
}

func (m *Model) endWork() tea.Cmd {
	sessionID, err := m.scope.work.End()
	if err != nil {
		m.showWorkError(err)
		return nil
	}
	m.logger.Info("work session ending", logging.F("session", sessionID))
	m.status = "ending work session"
	m.refreshContent()
	return endWorkCmd(m.api, m.scope.gen, m.scope.projectID(), sessionID)
}

func (m *Model) showWorkError(err error) {
	switch {
	case errors.Is(err, worksession.ErrEmptyMessage):
		return
	case errors.Is(err, worksession.ErrNoProject):
		m.notifyWarning("select a project first (ctrl+p)")
	default:
		m.notifyWarning(err.Error())
	}
}

func (m *Model) handleLedgerKey(key string) tea.Cmd {
	if m.scope.detail != nil {
		if key == "esc" || key == "enter" {
			m.scope.detail = nil
			m.refreshContent()
		}
		return nil
	}
	if key != "D" {
		m.deleteArmed = ""
	}
	switch key {
	case "up", "k":
		m.moveLedgerSelection(-1)
	case "down", "j":
		m.moveLedgerSelection(1)
	case "home", "g":
		m.moveLedgerSelection(-len(m.ledgerRows))
	case "end", "G":
		m.moveLedgerSelection(len(m.ledgerRows))
	case "f":
		m.cycleLedgerFilter(1)
	case "F":
		m.cycleLedgerFilter(-1)
	case "a":
		m.ledgerFilter = ""
		m.ledgerSelected = 0
		m.refreshContent()
	case "enter":
		if id := m.selectedRecordID(); id != "" {
			return fetchMemoryDetailCmd(m.api, m.scope.gen, m.scope.projectID(), id)
		}
	case "D":
		return m.supersedeSelected()
	}
	return nil
}

func (m *Model) supersedeSelected() tea.Cmd {
	id := m.selectedRecordID()
	if id == "" {
		return nil
	}
	if m.deleteArmed != id {
		m.deleteArmed = id
		m.notifyWarning("press D again to supersede " + types.ShortID(id))
		return nil
	}
	m.deleteArmed = ""
	return deleteMemoryCmd(m.api, m.scope.gen, m.scope.projectID(), id)
}

func (m *Model) refreshLedger() tea.Cmd {
	if !m.scope.selected() {
		return nil
	}
	m.status = "refreshing ledger"
	return refreshLedgerCmd(m.scope.cache, m.scope.gen)
}

func (m *Model) openConflict() {
	entry, ok := m.scope.log.PendingConflict()
	if !ok {
		m.notifyInfo("no pending conflict")
		return
	}
	candidate, err := conflict.FromEvent(entry.Event)
	if err != nil {
		m.logger.Warn("conflict payload rejected", logging.Err(err))
		m.scope.log.DismissConflict()
		m.notifyError("conflict cannot be reviewed: " + err.Error())
		m.refreshContent()
		return
	}
	m.scope.conflict.Open(candidate)
	m.mode = uiModeConflict
}

// dismissPendingConflict drops the highlighted conflict without opening it.
func (m *Model) dismissPendingConflict() bool {
	if !m.scope.log.DismissConflict() {
		return false
	}
	m.notifyInfo("conflict dismissed")
	m.refreshContent()
	return true
}

func (m *Model) handleConflictKey(key string) tea.Cmd {
	switch key {
	case "esc":
		m.scope.conflict.Dismiss()
		m.scope.log.DismissConflict()
		m.mode = uiModeNormal
		m.refreshContent()
		return nil
	case "k", "K":
		return m.submitConflict(conflict.Keep)
	case "o", "O":
		return m.submitConflict(conflict.Override)
	}
	return nil
}

func (m *Model) submitConflict(disposition conflict.Disposition) tea.Cmd {
	req, err := m.scope.conflict.BeginSubmit(disposition)
	if err != nil {
		if !errors.Is(err, conflict.ErrSubmitting) {
			m.notifyWarning(err.Error())
		}
		return nil
	}
	return resolveConflictCmd(m.api, m.scope.gen, m.scope.projectID(), disposition, req)
}

func (m *Model) links() []focusTarget {
	out := make([]focusTarget, 0, len(m.mainLinks)+len(m.eventLinks))
	out = append(out, m.mainLinks...)
	return append(out, m.eventLinks...)
}

func (m *Model) focusLinks() {
	if len(m.links()) == 0 {
		m.notifyInfo("no citations to follow")
		return
	}
	m.mode = uiModeLinks
	m.linkIndex = 0
	m.refreshContent()
}

func (m *Model) focusedLink() (focusTarget, bool) {
	links := m.links()
	if m.linkIndex < 0 || m.linkIndex >= len(links) {
		return focusTarget{}, false
	}
	return links[m.linkIndex], true
}

func (m *Model) leaveLinks() {
	m.mode = uiModeNormal
	m.linkIndex = -1
	m.refreshContent()
}

func (m *Model) handleLinkKey(key string) tea.Cmd {
	links := m.links()
	if len(links) == 0 {
		m.leaveLinks()
		return nil
	}
	switch key {
	case "esc", "ctrl+l":
		m.leaveLinks()
	case "right", "tab", "n", "down":
		m.linkIndex = (m.linkIndex + 1) % len(links)
		m.refreshContent()
	case "left", "shift+tab", "p", "up":
		m.linkIndex = (m.linkIndex - 1 + len(links)) % len(links)
		m.refreshContent()
	case "ctrl+y":
		if target, ok := m.focusedLink(); ok {
			m.copyRecordID(target.recordID)
		}
	case "enter":
		target, ok := m.focusedLink()
		m.leaveLinks()
		if !ok {
			return nil
		}
		return m.follow(target)
	}
	return nil
}

// follow navigates to a cached record directly. Unknown ids go through the
// resolver against a fresh ledger.
func (m *Model) follow(target focusTarget) tea.Cmd {
	if target.recordID != "" {
		if _, ok := m.scope.cache.Lookup(target.recordID); ok {
			m.navigateTo(target.recordID)
			return nil
		}
	}
	token := target.token
	if token == "" {
		token = target.recordID
	}
	if _, ok := citation.Parse(token); !ok {
		m.notifyWarning("citation not found: " + token)
		return nil
	}
	m.scope.cache.Invalidate()
	return resolveCitationCmd(m.scope.resolver, m.scope.gen, token)
}
