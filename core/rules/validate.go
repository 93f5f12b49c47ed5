package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrInvalidRule is wrapped by every validation failure.
var ErrInvalidRule = errors.New("invalid rule")

// DefaultMatchTimeout bounds a single pattern evaluation.
const DefaultMatchTimeout = 100 * time.Millisecond

// compile builds a start-anchored matcher. RE2 mode accepts (?P<name>...) groups.
func compile(pattern string, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(`\A(?:`+pattern+`)`, regexp2.RE2)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultMatchTimeout
	}
	re.MatchTimeout = timeout
	return re, nil
}

// Validate checks a name rule before it is stored.
func (r *NameRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("%w: pattern is required", ErrInvalidRule)
	}
	if strings.TrimSpace(r.Template) == "" {
		return fmt.Errorf("%w: template is required", ErrInvalidRule)
	}
	if _, err := compile(r.Pattern, 0); err != nil {
		return fmt.Errorf("%w: pattern %q does not compile: %v", ErrInvalidRule, r.Pattern, err)
	}
	return nil
}

// Validate checks a prefix filter rule before it is stored.
// An empty length filter is normalized to "none".
func (r *PrefixFilterRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	switch r.FilterType {
	case FilterExclude, FilterIncludeOnly:
	default:
		return fmt.Errorf("%w: unknown filter type %q", ErrInvalidRule, r.FilterType)
	}
	if r.Pattern != "" {
		if _, err := compile(r.Pattern, 0); err != nil {
			return fmt.Errorf("%w: pattern %q does not compile: %v", ErrInvalidRule, r.Pattern, err)
		}
	}

	if r.LengthFilter == "" {
		r.LengthFilter = LengthNone
	}
	for _, v := range []*int{r.MinLength, r.MaxLength} {
		if v != nil && (*v < 0 || *v > 128) {
			return fmt.Errorf("%w: prefix length %d out of range", ErrInvalidRule, *v)
		}
	}

	switch r.LengthFilter {
	case LengthNone:
	case LengthExact:
		if r.MinLength == nil && r.MaxLength == nil {
			return fmt.Errorf("%w: exact length filter needs a length", ErrInvalidRule)
		}
	case LengthGreater:
		if r.MinLength == nil {
			return fmt.Errorf("%w: greater length filter needs min_prefix_length", ErrInvalidRule)
		}
	case LengthLess:
		if r.MaxLength == nil {
			return fmt.Errorf("%w: less length filter needs max_prefix_length", ErrInvalidRule)
		}
	case LengthRange:
		if r.MinLength == nil || r.MaxLength == nil {
			return fmt.Errorf("%w: range length filter needs min and max prefix length", ErrInvalidRule)
		}
		if *r.MinLength > *r.MaxLength {
			return fmt.Errorf("%w: min_prefix_length %d exceeds max_prefix_length %d", ErrInvalidRule, *r.MinLength, *r.MaxLength)
		}
	default:
		return fmt.Errorf("%w: unknown prefix length filter %q", ErrInvalidRule, r.LengthFilter)
	}
	return nil
}
