package app

import (
	"decisionctl/internal/citation"
	"decisionctl/internal/conflict"
	"decisionctl/internal/eventstream"
	"decisionctl/internal/ledger"
	"decisionctl/internal/logging"
	"decisionctl/internal/quickchat"
	"decisionctl/internal/types"
	"decisionctl/internal/worksession"
)

// projectScope is all state owned by the selected project. Switching
// projects bumps gen so results issued for the previous project are dropped
// when they arrive.
type projectScope struct {
	gen      int
	project  *types.Project
	loading  bool
	cache    *ledger.Cache
	resolver *citation.Resolver
	turns    quickchat.Navigator
	work     *worksession.Machine
	log      *eventstream.Log
	conflict conflict.Flow

	quickInflight int
	detail        *types.Memory
}

func newProjectScope(fetcher ledger.Fetcher, logLimit int, logger logging.Logger) *projectScope {
	cache := ledger.NewCache(fetcher, logging.Component(logger, "ledger"))
	return &projectScope{
		cache:    cache,
		resolver: citation.NewResolver(cache, logging.Component(logger, "citation")),
		work:     worksession.New(),
		log:      eventstream.NewLog(logLimit, logging.Component(logger, "events")),
	}
}

// reset re-targets the scope. Everything project specific is cleared.
func (s *projectScope) reset(project *types.Project) {
	s.gen++
	s.project = project
	s.loading = project != nil
	s.cache.Reset(s.projectID())
	s.turns.Reset()
	s.work.Reset()
	s.log.Reset()
	s.conflict.Dismiss()
	s.quickInflight = 0
	s.detail = nil
}

func (s *projectScope) projectID() string {
	if s.project == nil {
		return ""
	}
	return s.project.ID
}

func (s *projectScope) selected() bool {
	return s.project != nil
}

func (s *projectScope) current(gen int) bool {
	return gen == s.gen
}

func (s *projectScope) lookup(tok citation.Token) (types.Memory, bool) {
	return s.resolver.Lookup(tok)
}
