package citation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decisionctl/internal/ledger"
	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

var ErrNotFound = errors.New("citation not found")

// Source is the record cache the resolver reads from.
type Source interface {
	Empty() bool
	Received() []types.Memory
	RefreshCurrent(ctx context.Context) (*ledger.Snapshot, error)
}

type Resolver struct {
	source Source
	logger logging.Logger
}

func NewResolver(source Source, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve maps raw to a record, refreshing the cache first when it is empty.
// Misses return ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, raw string) (types.Memory, error) {
	tok, ok := Parse(raw)
	if !ok {
		return types.Memory{}, fmt.Errorf("%w: %q", ErrNotFound, raw)
	}
	if r.source == nil {
		return types.Memory{}, fmt.Errorf("%w: %q", ErrNotFound, raw)
	}
	if r.source.Empty() {
		if _, err := r.source.RefreshCurrent(ctx); err != nil {
			r.logger.Warn("citation refresh failed", logging.F("token", raw), logging.Err(err))
		}
	}
	if record, ok := Match(r.source.Received(), tok); ok {
		return record, nil
	}
	return types.Memory{}, fmt.Errorf("%w: %q", ErrNotFound, raw)
}

// Lookup resolves against what is cached right now, without refreshing.
func (r *Resolver) Lookup(tok Token) (types.Memory, bool) {
	if r == nil || r.source == nil {
		return types.Memory{}, false
	}
	return Match(r.source.Received(), tok)
}

// Match applies the precedence exact id, then id prefix, then TYPE-N. Ties
// within a strategy go to the earliest record in the order given.
func Match(records []types.Memory, tok Token) (types.Memory, bool) {
	if tok.HasID() {
		for _, record := range records {
			if strings.EqualFold(record.ID, tok.ID) {
				return record, true
			}
		}
		if len(tok.ID) >= minPrefixLen {
			for _, record := range records {
				if strings.HasPrefix(strings.ToLower(record.ID), tok.ID) {
					return record, true
				}
			}
		}
	}
	if tok.HasTypeRef() {
		seen := 0
		for _, record := range records {
			if record.Type != tok.Type {
				continue
			}
			seen++
			if seen == tok.Index {
				return record, true
			}
		}
	}
	return types.Memory{}, false
}
