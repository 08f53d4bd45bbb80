package app

import (
	"errors"
	"fmt"

	"decisionctl/internal/client"
	"decisionctl/internal/ledger"
	"decisionctl/internal/logging"
	"decisionctl/internal/quickchat"
	"decisionctl/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) dropStale(kind string, gen int) bool {
	if m.scope.current(gen) {
		return false
	}
	m.logger.Debug("stale result dropped",
		logging.F("kind", kind),
		logging.F("gen", gen),
		logging.F("current", m.scope.gen),
	)
	return true
}

func (m *Model) handleHealth(msg healthMsg) {
	if msg.err == nil {
		return
	}
	m.logger.Warn("health check failed", logging.Err(msg.err))
	if client.IsUnreachable(msg.err) || errors.Is(msg.err, errUnhealthy) {
		m.setUnreachable()
	}
}

// setUnreachable raises the startup notice. It stays until a project loads.
func (m *Model) setUnreachable() {
	if m.scope.selected() && !m.scope.loading {
		return
	}
	target := m.baseURL
	if target == "" {
		target = "the backend"
	}
	m.setBanner(fmt.Sprintf("Cannot reach %s. Start the backend, then press ctrl+p to retry.", target))
}

func (m *Model) handleProjects(msg projectsMsg) tea.Cmd {
	wanted := m.pickerWanted
	m.pickerWanted = false
	if msg.err != nil {
		m.logger.Warn("list projects failed", logging.Err(msg.err))
		if client.IsUnreachable(msg.err) {
			m.setUnreachable()
			return nil
		}
		m.notifyError("list projects failed: " + msg.err.Error())
		return nil
	}
	m.projects = msg.projects
	if m.scope.selected() {
		if wanted {
			return m.openPicker()
		}
		return nil
	}
	if m.initialProject != "" {
		id := m.initialProject
		m.initialProject = ""
		for _, project := range m.projects {
			if project.ID == id || project.Name == id {
				return m.switchProject(project)
			}
		}
		m.notifyWarning("project not found: " + id)
	}
	switch len(m.projects) {
	case 0:
		m.status = "no projects on the backend"
		return nil
	case 1:
		return m.switchProject(m.projects[0])
	}
	return m.openPicker()
}

func (m *Model) openPicker() tea.Cmd {
	if len(m.projects) == 0 {
		m.pickerWanted = true
		m.status = "loading projects"
		return fetchProjectsCmd(m.api)
	}
	m.mode = uiModePicker
	m.quickInput.Blur()
	m.workInput.Blur()
	return m.picker.Open(m.projects, m.scope.projectID())
}

func (m *Model) closePicker() {
	m.picker.Close()
	m.mode = uiModeNormal
	switch m.view {
	case viewQuick:
		m.quickInput.Focus()
	case viewWork:
		m.workInput.Focus()
	}
}

func (m *Model) handleProjectLoaded(msg projectLoadedMsg) tea.Cmd {
	if m.dropStale("project", msg.gen) {
		return nil
	}
	m.scope.loading = false
	m.setBanner("")
	name := m.scope.project.DisplayName()
	m.status = name
	if msg.ledgerErr != nil && !errors.Is(msg.ledgerErr, ledger.ErrStaleProject) {
		m.logger.Warn("ledger load failed", logging.F("project", msg.projectID), logging.Err(msg.ledgerErr))
		m.notifyError("load ledger failed: " + msg.ledgerErr.Error())
	}
	if msg.sessionErr != nil {
		m.logger.Warn("active session lookup failed", logging.F("project", msg.projectID), logging.Err(msg.sessionErr))
		m.notifyWarning("check work session failed: " + msg.sessionErr.Error())
	}
	if msg.session != nil {
		m.scope.work.Restore(*msg.session, msg.history)
		m.status = name + " · resumed work session"
		m.logger.Info("work session restored",
			logging.F("project", msg.projectID),
			logging.F("session", msg.session.ID),
			logging.F("messages", len(msg.history)),
		)
	}
	m.stream.SetStream(m.channel.Connect(m.ctx, msg.projectID))
	m.refreshContent()
	return nil
}

func (m *Model) handleLedgerRefreshed(msg ledgerRefreshedMsg) {
	if m.dropStale("ledger", msg.gen) {
		return
	}
	if msg.err != nil {
		if errors.Is(msg.err, ledger.ErrStaleProject) {
			return
		}
		m.logger.Warn("ledger refresh failed", logging.Err(msg.err))
		m.notifyError("refresh ledger failed: " + msg.err.Error())
		return
	}
	if m.ledgerSelected >= len(m.ledgerRows) {
		m.ledgerSelected = 0
	}
	m.refreshContent()
}

func (m *Model) handleQuickReply(msg quickReplyMsg) tea.Cmd {
	if m.dropStale("quick", msg.gen) {
		return nil
	}
	if m.scope.quickInflight > 0 {
		m.scope.quickInflight--
	}
	if msg.err != nil {
		m.logger.Warn("quick update failed", logging.Err(msg.err))
		m.notifyError("quick update failed: " + msg.err.Error())
		m.scope.turns.Append(types.StatelessTurn{Input: msg.input, Output: quickchat.FailureOutput})
		m.linkIndex = -1
		m.refreshContent()
		return nil
	}
	output := msg.resp.AssistantText
	if msg.resp.ViolationChallenge != "" {
		output += "\n\n> " + msg.resp.ViolationChallenge
	}
	m.scope.turns.Append(types.StatelessTurn{
		Input:        msg.input,
		Output:       output,
		Debug:        msg.resp.Debug,
		NewRecordIDs: msg.resp.MemoriesCreated,
	})
	m.linkIndex = -1
	m.refreshContent()
	if len(msg.resp.MemoriesCreated) == 0 {
		return nil
	}
	m.scope.cache.Invalidate()
	return refreshLedgerCmd(m.scope.cache, m.scope.gen)
}

func (m *Model) handleWorkStarted(msg workStartedMsg) {
	if m.dropStale("work start", msg.gen) {
		return
	}
	if msg.err != nil {
		m.scope.work.FailStart()
		m.logger.Warn("work session start failed", logging.Err(msg.err))
		m.notifyError("start work session failed: " + msg.err.Error())
		m.workInput.SetValue(msg.task)
		m.refreshContent()
		return
	}
	m.scope.work.CompleteStart(msg.resp.SessionID, msg.task)
	m.logger.Info("work session started", logging.F("session", msg.resp.SessionID))
	m.notifyInfo("work session started")
	m.refreshContent()
}

func (m *Model) handleWorkReply(msg workReplyMsg) {
	if m.dropStale("work reply", msg.gen) {
		return
	}
	if msg.err != nil {
		m.logger.Warn("work message failed", logging.F("session", msg.sessionID), logging.Err(msg.err))
		if m.scope.work.FailSend(msg.sessionID) {
			m.notifyError("send message failed: " + msg.err.Error())
		}
		m.refreshContent()
		return
	}
	if !m.scope.work.CompleteSend(msg.sessionID, msg.resp.AssistantText, msg.resp.Debug.MemoryUsed) {
		m.logger.Debug("reply for ended session dropped", logging.F("session", msg.sessionID))
		return
	}
	m.refreshContent()
}

func (m *Model) handleWorkEnded(msg workEndedMsg) tea.Cmd {
	if m.dropStale("work end", msg.gen) {
		return nil
	}
	if msg.err != nil {
		m.scope.work.FailEnd(msg.sessionID)
		m.logger.Warn("work session end failed", logging.F("session", msg.sessionID), logging.Err(msg.err))
		m.notifyError("end work session failed: " + msg.err.Error())
		return nil
	}
	m.scope.work.CompleteEnd(msg.sessionID)
	m.notifyInfo(fmt.Sprintf("work session ended · %d records created", msg.resp.MemoriesCreated))
	m.scope.cache.Invalidate()
	return refreshLedgerCmd(m.scope.cache, m.scope.gen)
}

func (m *Model) handleConflictResolved(msg conflictResolvedMsg) tea.Cmd {
	if m.dropStale("conflict", msg.gen) {
		return nil
	}
	if msg.err != nil {
		m.scope.conflict.FailSubmit(msg.err)
		m.logger.Warn("conflict resolution failed", logging.Err(msg.err))
		m.notifyError("resolve conflict failed: " + msg.err.Error())
		return nil
	}
	outcome := m.scope.conflict.CompleteSubmit(msg.disposition, msg.resp)
	if outcome.ClearEntry {
		m.scope.log.ResolveConflict()
	}
	if m.mode == uiModeConflict {
		m.mode = uiModeNormal
	}
	m.notifyInfo("conflict resolved: " + string(msg.disposition))
	m.refreshContent()
	if !outcome.RefreshLedger {
		return nil
	}
	m.scope.cache.Invalidate()
	return refreshLedgerCmd(m.scope.cache, m.scope.gen)
}

func (m *Model) handleNavigate(msg navigateMsg) {
	if m.dropStale("navigate", msg.gen) {
		return
	}
	if msg.err != nil {
		m.notifyWarning("citation not found: " + msg.token)
		return
	}
	m.navigateTo(msg.record.ID)
}

func (m *Model) handleMemoryDetail(msg memoryDetailMsg) {
	if m.dropStale("memory", msg.gen) {
		return
	}
	if msg.err != nil {
		m.notifyError("load record failed: " + msg.err.Error())
		return
	}
	m.scope.detail = msg.record
	m.refreshContent()
}

func (m *Model) handleMemoryDeleted(msg memoryDeletedMsg) tea.Cmd {
	if m.dropStale("delete", msg.gen) {
		return nil
	}
	if msg.err != nil {
		m.notifyError("supersede record failed: " + msg.err.Error())
		return nil
	}
	m.notifyInfo("superseded " + types.ShortID(msg.memoryID))
	if m.scope.detail != nil && m.scope.detail.ID == msg.memoryID {
		m.scope.detail = nil
	}
	m.scope.cache.Invalidate()
	return refreshLedgerCmd(m.scope.cache, m.scope.gen)
}
