package core

import (
	"context"
	"sort"
	"strings"

	"github.com/JonMunkholm/csvcompare/internal/logging"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// RuleSetMatchThreshold is the minimum score for a saved rule set to be
// suggested for a pair of files.
const RuleSetMatchThreshold = 0.7

// RuleSetInput is the user-editable part of a rule set.
type RuleSetInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Rules       []ComparisonRule `json:"rules"`
}

func (in RuleSetInput) validate() (RuleSetInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, errors.WithStack(ErrRuleSetName)
	}

	rules, err := ValidateRules(in.Rules)
	if err != nil {
		return in, err
	}
	in.Rules = rules
	return in, nil
}

// CreateRuleSet saves a new named rule list.
func (s *Service) CreateRuleSet(ctx context.Context, in RuleSetInput) (*RuleSet, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	rs, err := s.store.CreateRuleSet(ctx, RuleSet{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Rules:       in.Rules,
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("rule set created", "rule_set_id", rs.ID, "name", rs.Name, "rules", len(rs.Rules))
	return &rs, nil
}

// GetRuleSet retrieves a rule set by ID.
func (s *Service) GetRuleSet(ctx context.Context, id string) (*RuleSet, error) {
	rs, err := s.store.GetRuleSet(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListRuleSets returns all saved rule sets ordered by name.
func (s *Service) ListRuleSets(ctx context.Context) ([]RuleSet, error) {
	return s.store.ListRuleSets(ctx)
}

// UpdateRuleSet replaces the name, description and rules of a rule set.
func (s *Service) UpdateRuleSet(ctx context.Context, id string, in RuleSetInput) (*RuleSet, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	rs, err := s.store.UpdateRuleSet(ctx, RuleSet{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Rules:       in.Rules,
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("rule set updated", "rule_set_id", rs.ID, "name", rs.Name, "rules", len(rs.Rules))
	return &rs, nil
}

// DeleteRuleSet removes a rule set.
func (s *Service) DeleteRuleSet(ctx context.Context, id string) error {
	if err := s.store.DeleteRuleSet(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("rule set deleted", "rule_set_id", id)
	return nil
}

// MatchRuleSets scores every saved rule set against the headers of two files
// and returns those at or above RuleSetMatchThreshold, best first.
func (s *Service) MatchRuleSets(ctx context.Context, file1Headers, file2Headers []string) ([]RuleSetMatch, error) {
	ruleSets, err := s.store.ListRuleSets(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]RuleSetMatch, 0)
	for _, rs := range ruleSets {
		score := scoreRuleSet(rs.Rules, file1Headers, file2Headers)
		if score >= RuleSetMatchThreshold {
			matches = append(matches, RuleSetMatch{RuleSet: rs, MatchScore: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches, nil
}

// scoreRuleSet returns the fraction of rule columns present in the headers.
// Each rule contributes two columns: column1 looked up in file1Headers and
// column2 in file2Headers. Header names compare by their normalized form.
func scoreRuleSet(rules []ComparisonRule, file1Headers, file2Headers []string) float64 {
	if len(rules) == 0 {
		return 0
	}

	first := headerSet(file1Headers)
	second := headerSet(file2Headers)

	found := 0
	for _, r := range rules {
		if first[Normalize(r.Column1)] {
			found++
		}
		if second[Normalize(r.Column2)] {
			found++
		}
	}
	return float64(found) / float64(2*len(rules))
}

func headerSet(headers []string) map[string]bool {
	set := make(map[string]bool, len(headers))
	for _, h := range headers {
		set[Normalize(h)] = true
	}
	return set
}
