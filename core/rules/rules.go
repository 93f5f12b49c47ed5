package rules

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NetworkNamePlaceholder is replaced by the original network name in templates.
const NetworkNamePlaceholder = "{network_name}"

type compiledNameRule struct {
	rule NameRule
	re   *regexp2.Regexp
	// groups lists capture group names in pattern order, "" for unnamed ones.
	groups []string
}

type compiledPrefixRule struct {
	rule PrefixFilterRule
	re   *regexp2.Regexp // nil for a blank pattern
}

// Options controls rule evaluation.
type Options struct {
	// ProcessUnmatchedSites keeps the original name when no rule matches.
	ProcessUnmatchedSites bool
	// MatchTimeout bounds one pattern evaluation.
	MatchTimeout time.Duration
}

// Set is an immutable snapshot of the enabled rules, compiled and ordered.
type Set struct {
	names    []compiledNameRule
	prefixes []compiledPrefixRule
	opts     Options
	logger   *zap.Logger
}

// NewSet compiles the enabled rules. Disabled rules are ignored; a rule that
// does not compile is skipped and logged since it should have been rejected by Validate.
func NewSet(names []NameRule, prefixes []PrefixFilterRule, opts Options, logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Set{opts: opts, logger: logger}

	for _, r := range names {
		if !r.Enabled {
			continue
		}
		re, err := compile(r.Pattern, opts.MatchTimeout)
		if err != nil {
			logger.Warn("Skipping name rule with invalid pattern", zap.String("rule", r.Name), zap.Error(err))
			continue
		}
		s.names = append(s.names, compiledNameRule{rule: r, re: re, groups: captureOrder(r.Pattern)})
	}
	sort.SliceStable(s.names, func(i, j int) bool {
		a, b := s.names[i].rule, s.names[j].rule
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})

	for _, r := range prefixes {
		if !r.Enabled {
			continue
		}
		c := compiledPrefixRule{rule: r}
		if strings.TrimSpace(r.Pattern) != "" {
			re, err := compile(r.Pattern, opts.MatchTimeout)
			if err != nil {
				logger.Warn("Skipping prefix rule with invalid pattern", zap.String("rule", r.Name), zap.Error(err))
				continue
			}
			c.re = re
		}
		s.prefixes = append(s.prefixes, c)
	}
	sort.SliceStable(s.prefixes, func(i, j int) bool {
		a, b := s.prefixes[i].rule, s.prefixes[j].rule
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})

	return s
}

// Load reads every rule from the database and compiles the enabled ones.
func Load(ctx context.Context, db *gorm.DB, opts Options, logger *zap.Logger) (*Set, error) {
	var names []NameRule
	if err := db.WithContext(ctx).Where("enabled = ?", true).Order("priority asc, name asc").Find(&names).Error; err != nil {
		return nil, fmt.Errorf("failed to load name rules: %w", err)
	}
	var prefixes []PrefixFilterRule
	if err := db.WithContext(ctx).Where("enabled = ?", true).Order("priority asc, name asc").Find(&prefixes).Error; err != nil {
		return nil, fmt.Errorf("failed to load prefix filter rules: %w", err)
	}
	return NewSet(names, prefixes, opts, logger), nil
}

// TransformNetworkName resolves the site name for a network.
// ok is false when no rule matched and unmatched sites are not processed.
func (s *Set) TransformNetworkName(name string) (resolved string, ok bool) {
	for _, c := range s.names {
		m, err := c.re.FindStringMatch(name)
		if err != nil {
			s.logger.Warn("Name rule evaluation failed",
				zap.String("rule", c.rule.Name),
				zap.String("network", name),
				zap.Error(err),
			)
			continue
		}
		if m == nil {
			continue
		}
		return c.render(m, name), true
	}

	if s.opts.ProcessUnmatchedSites {
		return name, true
	}
	return "", false
}

// MatchingRule returns the name of the rule that would rename the network.
func (s *Set) MatchingRule(name string) (string, bool) {
	for _, c := range s.names {
		m, err := c.re.FindStringMatch(name)
		if err == nil && m != nil {
			return c.rule.Name, true
		}
	}
	return "", false
}

// render substitutes named groups, then numbered groups, then the original name.
// {0} is the first capture group counted left to right in the pattern,
// whether it is named or not.
func (c compiledNameRule) render(m *regexp2.Match, original string) string {
	out := c.rule.Template

	for _, name := range c.re.GetGroupNames() {
		if _, err := strconv.Atoi(name); err == nil {
			continue
		}
		out = strings.ReplaceAll(out, "{"+name+"}", groupValue(m.GroupByName(name)))
	}

	groups := m.Groups()
	if len(c.groups) == len(groups)-1 {
		// regexp2 numbers unnamed groups first and named groups after them.
		unnamed := 0
		for i, name := range c.groups {
			var g *regexp2.Group
			if name == "" {
				unnamed++
				g = m.GroupByNumber(unnamed)
			} else {
				g = m.GroupByName(name)
			}
			out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", groupValue(g))
		}
	} else {
		for i := 1; i < len(groups); i++ {
			out = strings.ReplaceAll(out, "{"+strconv.Itoa(i-1)+"}", groupValue(&groups[i]))
		}
	}

	out = strings.ReplaceAll(out, NetworkNamePlaceholder, original)
	return strings.TrimSpace(out)
}

func groupValue(g *regexp2.Group) string {
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// captureOrder scans a pattern for capturing groups in the order their
// opening parentheses appear.
func captureOrder(pattern string) []string {
	var order []string
	inClass := false
	for i := 0; i < len(pattern); i++ {
		switch ch := pattern[i]; {
		case ch == '\\':
			i++
		case inClass:
			if ch == ']' {
				inClass = false
			}
		case ch == '[':
			inClass = true
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case ch == '(':
			rest := pattern[i+1:]
			if !strings.HasPrefix(rest, "?") {
				order = append(order, "")
				continue
			}
			if strings.HasPrefix(rest, "?#") {
				if end := strings.IndexByte(rest, ')'); end >= 0 {
					i += end + 1
				}
				continue
			}
			if name, ok := groupName(rest[1:]); ok {
				order = append(order, name)
			}
		}
	}
	return order
}

// groupName reads the name of a named group from the text after "(?".
func groupName(s string) (string, bool) {
	var closer byte
	switch {
	case strings.HasPrefix(s, "P<"):
		s, closer = s[2:], '>'
	case strings.HasPrefix(s, "<") && !strings.HasPrefix(s, "<=") && !strings.HasPrefix(s, "<!"):
		s, closer = s[1:], '>'
	case strings.HasPrefix(s, "'"):
		s, closer = s[1:], '\''
	default:
		return "", false
	}
	end := strings.IndexByte(s, closer)
	if end <= 0 {
		return "", false
	}
	name := s[:end]
	if dash := strings.IndexByte(name, '-'); dash >= 0 {
		name = name[:dash]
	}
	return name, name != ""
}

// ShouldSyncPrefix reports whether a subnet survives every enabled filter rule.
func (s *Set) ShouldSyncPrefix(cidr string) bool {
	length := -1
	if p, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
		length = p.Bits()
	}

	for _, c := range s.prefixes {
		matched := s.prefixRuleMatches(c, cidr, length)
		switch c.rule.FilterType {
		case FilterExclude:
			if matched {
				return false
			}
		case FilterIncludeOnly:
			if !matched {
				return false
			}
		}
	}
	return true
}

func (s *Set) prefixRuleMatches(c compiledPrefixRule, cidr string, length int) bool {
	if c.re != nil {
		m, err := c.re.FindStringMatch(cidr)
		if err != nil {
			s.logger.Warn("Prefix rule evaluation failed",
				zap.String("rule", c.rule.Name),
				zap.String("prefix", cidr),
				zap.Error(err),
			)
			return false
		}
		if m == nil {
			return false
		}
	}
	return lengthMatches(c.rule, length)
}

func lengthMatches(r PrefixFilterRule, length int) bool {
	if r.LengthFilter == "" || r.LengthFilter == LengthNone {
		return true
	}
	if length < 0 {
		return false
	}

	switch r.LengthFilter {
	case LengthExact:
		target := r.MinLength
		if target == nil {
			target = r.MaxLength
		}
		return target != nil && length == *target
	case LengthGreater:
		return r.MinLength != nil && length > *r.MinLength
	case LengthLess:
		return r.MaxLength != nil && length < *r.MaxLength
	case LengthRange:
		return r.MinLength != nil && r.MaxLength != nil && length >= *r.MinLength && length <= *r.MaxLength
	}
	return false
}

// PreviewResult is the outcome of resolving one sample network name.
type PreviewResult struct {
	Network  string `json:"network"`
	SiteName string `json:"site_name,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Skipped  bool   `json:"skipped"`
}

// Preview resolves sample names without touching any store.
func (s *Set) Preview(networks []string) []PreviewResult {
	out := make([]PreviewResult, 0, len(networks))
	for _, n := range networks {
		res := PreviewResult{Network: n}
		if resolved, ok := s.TransformNetworkName(n); ok {
			res.SiteName = resolved
			res.Rule, _ = s.MatchingRule(n)
		} else {
			res.Skipped = true
		}
		out = append(out, res)
	}
	return out
}
