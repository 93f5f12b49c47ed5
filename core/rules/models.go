package rules

import "time"

// NameRule rewrites a network name into a site name.
type NameRule struct {
	ID          uint      `gorm:"primaryKey" json:"id" yaml:"-"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name" yaml:"name"`
	Pattern     string    `gorm:"size:500;not null" json:"pattern" yaml:"pattern"`
	Template    string    `gorm:"size:500;not null" json:"template" yaml:"template"`
	Priority    int       `gorm:"index;not null" json:"priority" yaml:"priority"`
	Enabled     bool      `gorm:"not null" json:"enabled" yaml:"enabled"`
	Description string    `gorm:"size:500" json:"description" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"-"`
}

func (NameRule) TableName() string {
	return "sync_name_rules"
}

// FilterType decides whether a matching prefix is dropped or required.
type FilterType string

const (
	FilterExclude     FilterType = "exclude"
	FilterIncludeOnly FilterType = "include_only"
)

// LengthFilter compares the prefix length against the rule bounds.
type LengthFilter string

const (
	LengthNone    LengthFilter = "none"
	LengthExact   LengthFilter = "exact"
	LengthGreater LengthFilter = "greater"
	LengthLess    LengthFilter = "less"
	LengthRange   LengthFilter = "range"
)

// PrefixFilterRule accepts or rejects subnets before they are staged as prefixes.
type PrefixFilterRule struct {
	ID           uint         `gorm:"primaryKey" json:"id" yaml:"-"`
	Name         string       `gorm:"size:100;uniqueIndex;not null" json:"name" yaml:"name"`
	Pattern      string       `gorm:"size:500" json:"pattern" yaml:"pattern"`
	FilterType   FilterType   `gorm:"size:20;not null" json:"filter_type" yaml:"filter_type"`
	LengthFilter LengthFilter `gorm:"size:20;not null" json:"prefix_length_filter" yaml:"prefix_length_filter"`
	MinLength    *int         `json:"min_prefix_length" yaml:"min_prefix_length,omitempty"`
	MaxLength    *int         `json:"max_prefix_length" yaml:"max_prefix_length,omitempty"`
	Priority     int          `gorm:"index;not null" json:"priority" yaml:"priority"`
	Enabled      bool         `gorm:"not null" json:"enabled" yaml:"enabled"`
	Description  string       `gorm:"size:500" json:"description" yaml:"description,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"-"`
}

func (PrefixFilterRule) TableName() string {
	return "sync_prefix_filter_rules"
}

// Models returns the gorm models owned by this package.
func Models() []any {
	return []any{&NameRule{}, &PrefixFilterRule{}}
}
