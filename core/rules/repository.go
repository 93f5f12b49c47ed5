package rules

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a rule id does not exist.
var ErrNotFound = errors.New("rule not found")

// Repository persists naming and prefix filter rules.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a rule repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListNameRules returns every name rule in evaluation order.
func (r *Repository) ListNameRules(ctx context.Context) ([]NameRule, error) {
	var out []NameRule
	if err := r.db.WithContext(ctx).Order("priority asc, name asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list name rules: %w", err)
	}
	return out, nil
}

// GetNameRule returns one name rule.
func (r *Repository) GetNameRule(ctx context.Context, id uint) (*NameRule, error) {
	var out NameRule
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get name rule %d: %w", id, err)
	}
	return &out, nil
}

// SaveNameRule validates and creates or updates a name rule.
func (r *Repository) SaveNameRule(ctx context.Context, rule *NameRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return fmt.Errorf("failed to save name rule %s: %w", rule.Name, err)
	}
	return nil
}

// DeleteNameRule removes a name rule.
func (r *Repository) DeleteNameRule(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&NameRule{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete name rule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPrefixRules returns every prefix filter rule in evaluation order.
func (r *Repository) ListPrefixRules(ctx context.Context) ([]PrefixFilterRule, error) {
	var out []PrefixFilterRule
	if err := r.db.WithContext(ctx).Order("priority asc, name asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list prefix filter rules: %w", err)
	}
	return out, nil
}

// GetPrefixRule returns one prefix filter rule.
func (r *Repository) GetPrefixRule(ctx context.Context, id uint) (*PrefixFilterRule, error) {
	var out PrefixFilterRule
	if err := r.db.WithContext(ctx).First(&out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prefix filter rule %d: %w", id, err)
	}
	return &out, nil
}

// SavePrefixRule validates and creates or updates a prefix filter rule.
func (r *Repository) SavePrefixRule(ctx context.Context, rule *PrefixFilterRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(rule).Error; err != nil {
		return fmt.Errorf("failed to save prefix filter rule %s: %w", rule.Name, err)
	}
	return nil
}

// DeletePrefixRule removes a prefix filter rule.
func (r *Repository) DeletePrefixRule(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&PrefixFilterRule{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete prefix filter rule %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Document is the import/export form of a rule set.
type Document struct {
	NameRules   []NameRule         `json:"name_rules" yaml:"name_rules"`
	PrefixRules []PrefixFilterRule `json:"prefix_rules" yaml:"prefix_rules"`
}

// Import validates every rule and upserts them by name in one transaction.
func (r *Repository) Import(ctx context.Context, doc Document) error {
	for i := range doc.NameRules {
		if err := doc.NameRules[i].Validate(); err != nil {
			return fmt.Errorf("name rule %d: %w", i, err)
		}
	}
	for i := range doc.PrefixRules {
		if err := doc.PrefixRules[i].Validate(); err != nil {
			return fmt.Errorf("prefix rule %d: %w", i, err)
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range doc.NameRules {
			rule := doc.NameRules[i]
			rule.ID = 0
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"pattern", "template", "priority", "enabled", "description", "updated_at"}),
			}).Create(&rule).Error
			if err != nil {
				return fmt.Errorf("failed to import name rule %s: %w", rule.Name, err)
			}
		}
		for i := range doc.PrefixRules {
			rule := doc.PrefixRules[i]
			rule.ID = 0
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"pattern", "filter_type", "length_filter", "min_length", "max_length",
					"priority", "enabled", "description", "updated_at",
				}),
			}).Create(&rule).Error
			if err != nil {
				return fmt.Errorf("failed to import prefix filter rule %s: %w", rule.Name, err)
			}
		}
		return nil
	})
}

// Export returns every stored rule.
func (r *Repository) Export(ctx context.Context) (*Document, error) {
	names, err := r.ListNameRules(ctx)
	if err != nil {
		return nil, err
	}
	prefixes, err := r.ListPrefixRules(ctx)
	if err != nil {
		return nil, err
	}
	return &Document{NameRules: names, PrefixRules: prefixes}, nil
}
