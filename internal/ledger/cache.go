package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"decisionctl/internal/client"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

var (
	ErrStaleProject = errors.New("ledger result is for a project that is no longer selected")
	ErrNoProject    = errors.New("no project selected")
)

type Fetcher interface {
	Ledger(ctx context.Context, projectID string) (*client.LedgerResponse, error)
}

// Cache holds at most one project's snapshot. A refresh replaces the snapshot
// wholesale; results never merge across projects.
type Cache struct {
	fetcher Fetcher
	logger  logging.Logger
	now     func() time.Time

	mu        sync.RWMutex
	projectID string
	snapshot  *Snapshot
}

func NewCache(fetcher Fetcher, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Cache{fetcher: fetcher, logger: logger, now: time.Now}
}

func (c *Cache) ProjectID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectID
}

// Reset empties the cache and targets projectID for the next refresh.
func (c *Cache) Reset(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectID = strings.TrimSpace(projectID)
	c.snapshot = nil
}

// Invalidate drops the snapshot but keeps the target project.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

func (c *Cache) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot == nil
}

func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) Records() []types.Memory {
	return c.Snapshot().Records()
}

func (c *Cache) Received() []types.Memory {
	return c.Snapshot().Received()
}

func (c *Cache) Lookup(id string) (types.Memory, bool) {
	return c.Snapshot().Lookup(id)
}

// Refresh fetches projectID's ledger. When the cache has been re-targeted
// while the fetch was in flight the result is dropped with ErrStaleProject.
func (c *Cache) Refresh(ctx context.Context, projectID string) (*Snapshot, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, ErrNoProject
	}
	if c.fetcher == nil {
		return nil, errors.New("ledger fetcher is required")
	}
	if c.ProjectID() != projectID {
		return nil, ErrStaleProject
	}
	resp, err := c.fetcher.Ledger(ctx, projectID)
	if err != nil {
		return nil, err
	}
	snap := newSnapshot(projectID, resp, c.now())

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.projectID != projectID {
		c.logger.Debug("ledger refresh discarded",
			logging.F("project", projectID),
			logging.F("current", c.projectID),
		)
		return nil, ErrStaleProject
	}
	c.snapshot = snap
	c.logger.Debug("ledger refreshed",
		logging.F("project", projectID),
		logging.F("records", snap.Len()),
	)
	return snap, nil
}

// RefreshCurrent refreshes whichever project the cache targets.
func (c *Cache) RefreshCurrent(ctx context.Context) (*Snapshot, error) {
	return c.Refresh(ctx, c.ProjectID())
}
