package rules

import (
	"context"
	"fmt"

	"meraki-sync/core/rules"
	"meraki-sync/core/settings"

	"go.uber.org/zap"
)

// SettingsSource provides the options rules are evaluated with.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Settings, error)
}

// Service manages rules and previews their effect.
type Service struct {
	repo     *rules.Repository
	settings SettingsSource
	logger   *zap.Logger
}

// NewService creates a rules service. src may be nil, in which case default settings apply.
func NewService(repo *rules.Repository, src SettingsSource, logger *zap.Logger) *Service {
	return &Service{repo: repo, settings: src, logger: logger}
}

func (s *Service) options(ctx context.Context) (rules.Options, error) {
	snap := settings.Default()
	if s.settings != nil {
		var err error
		if snap, err = s.settings.Snapshot(ctx); err != nil {
			return rules.Options{}, err
		}
	}
	return rules.Options{ProcessUnmatchedSites: snap.ProcessUnmatchedSites, MatchTimeout: snap.MatchTimeout}, nil
}

// PreviewNames resolves sample network names. When candidate is set only that rule
// is evaluated, whether or not it is enabled, and unmatched names are reported as skipped.
func (s *Service) PreviewNames(ctx context.Context, networks []string, candidate *rules.NameRule) ([]rules.PreviewResult, error) {
	opts, err := s.options(ctx)
	if err != nil {
		return nil, err
	}

	var names []rules.NameRule
	if candidate != nil {
		rule := *candidate
		rule.Enabled = true
		if rule.Name == "" {
			rule.Name = "candidate"
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		names = []rules.NameRule{rule}
		opts.ProcessUnmatchedSites = false
	} else if names, err = s.repo.ListNameRules(ctx); err != nil {
		return nil, err
	}
	return rules.NewSet(names, nil, opts, s.logger).Preview(networks), nil
}

// PrefixPreview is the outcome of filtering one sample prefix.
type PrefixPreview struct {
	Prefix string `json:"prefix"`
	Synced bool   `json:"synced"`
}

// PreviewPrefixes evaluates sample prefixes against the stored filter rules.
func (s *Service) PreviewPrefixes(ctx context.Context, prefixes []string) ([]PrefixPreview, error) {
	opts, err := s.options(ctx)
	if err != nil {
		return nil, err
	}
	filters, err := s.repo.ListPrefixRules(ctx)
	if err != nil {
		return nil, err
	}
	set := rules.NewSet(nil, filters, opts, s.logger)
	out := make([]PrefixPreview, 0, len(prefixes))
	for _, p := range prefixes {
		out = append(out, PrefixPreview{Prefix: p, Synced: set.ShouldSyncPrefix(p)})
	}
	return out, nil
}

// ReplaceNameRule overwrites an existing name rule.
func (s *Service) ReplaceNameRule(ctx context.Context, id uint, rule *rules.NameRule) error {
	existing, err := s.repo.GetNameRule(ctx, id)
	if err != nil {
		return err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	return s.repo.SaveNameRule(ctx, rule)
}

// ReplacePrefixRule overwrites an existing prefix filter rule.
func (s *Service) ReplacePrefixRule(ctx context.Context, id uint, rule *rules.PrefixFilterRule) error {
	existing, err := s.repo.GetPrefixRule(ctx, id)
	if err != nil {
		return err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	return s.repo.SavePrefixRule(ctx, rule)
}

// Import upserts every rule of the document.
func (s *Service) Import(ctx context.Context, doc rules.Document) error {
	if err := s.repo.Import(ctx, doc); err != nil {
		return err
	}
	s.logger.Info("Rules imported",
		zap.Int("name_rules", len(doc.NameRules)),
		zap.Int("prefix_rules", len(doc.PrefixRules)),
	)
	return nil
}

// Export returns every stored rule.
func (s *Service) Export(ctx context.Context) (*rules.Document, error) {
	doc, err := s.repo.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export rules: %w", err)
	}
	return doc, nil
}
