package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Store persists saved rule sets and the comparison history.
// Implementations return ErrRuleSetNotFound and ErrRuleSetExists (possibly
// wrapped) so callers can branch with errors.Is.
type Store interface {
	CreateRuleSet(ctx context.Context, rs RuleSet) (RuleSet, error)
	GetRuleSet(ctx context.Context, id string) (RuleSet, error)
	ListRuleSets(ctx context.Context) ([]RuleSet, error)
	UpdateRuleSet(ctx context.Context, rs RuleSet) (RuleSet, error)
	DeleteRuleSet(ctx context.Context, id string) error

	RecordRun(ctx context.Context, run RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// DefaultHistoryLimit bounds how many run summaries a store keeps.
const DefaultHistoryLimit = 100

// MemoryStore keeps everything in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	ruleSets map[string]RuleSet
	runs     []RunSummary // newest last
	keep     int
	now      func() time.Time
}

// NewMemoryStore returns an empty store that keeps at most historyLimit runs.
func NewMemoryStore(historyLimit int) *MemoryStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &MemoryStore{
		ruleSets: make(map[string]RuleSet),
		keep:     historyLimit,
		now:      time.Now,
	}
}

func (m *MemoryStore) CreateRuleSet(_ context.Context, rs RuleSet) (RuleSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nameTaken(rs.Name, "") {
		return RuleSet{}, errors.Wrapf(ErrRuleSetExists, "rule set %q", rs.Name)
	}
	if _, ok := m.ruleSets[rs.ID]; ok {
		return RuleSet{}, errors.Wrapf(ErrRuleSetExists, "rule set id %s", rs.ID)
	}

	now := m.now().UTC()
	rs.CreatedAt, rs.UpdatedAt = now, now
	rs.Rules = cloneRules(rs.Rules)
	m.ruleSets[rs.ID] = rs
	return rs, nil
}

func (m *MemoryStore) GetRuleSet(_ context.Context, id string) (RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.ruleSets[id]
	if !ok {
		return RuleSet{}, errors.Wrapf(ErrRuleSetNotFound, "rule set %s", id)
	}
	rs.Rules = cloneRules(rs.Rules)
	return rs, nil
}

// ListRuleSets returns every rule set ordered by name.
func (m *MemoryStore) ListRuleSets(_ context.Context) ([]RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RuleSet, 0, len(m.ruleSets))
	for _, rs := range m.ruleSets {
		rs.Rules = cloneRules(rs.Rules)
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateRuleSet(_ context.Context, rs RuleSet) (RuleSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.ruleSets[rs.ID]
	if !ok {
		return RuleSet{}, errors.Wrapf(ErrRuleSetNotFound, "rule set %s", rs.ID)
	}
	if m.nameTaken(rs.Name, rs.ID) {
		return RuleSet{}, errors.Wrapf(ErrRuleSetExists, "rule set %q", rs.Name)
	}

	rs.CreatedAt = existing.CreatedAt
	rs.UpdatedAt = m.now().UTC()
	rs.Rules = cloneRules(rs.Rules)
	m.ruleSets[rs.ID] = rs
	return rs, nil
}

func (m *MemoryStore) DeleteRuleSet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ruleSets[id]; !ok {
		return errors.Wrapf(ErrRuleSetNotFound, "rule set %s", id)
	}
	delete(m.ruleSets, id)
	return nil
}

// nameTaken reports whether another rule set (not exceptID) uses name.
// Names compare case-insensitively. Caller holds the lock.
func (m *MemoryStore) nameTaken(name, exceptID string) bool {
	for id, rs := range m.ruleSets {
		if id != exceptID && strings.EqualFold(rs.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) RecordRun(_ context.Context, run RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.keep; over > 0 {
		m.runs = append([]RunSummary(nil), m.runs[over:]...)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]RunSummary, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func cloneRules(rules []ComparisonRule) []ComparisonRule {
	return append([]ComparisonRule{}, rules...)
}
