package settings

import (
	"strings"
	"time"

	"meraki-sync/core/rules"
	"meraki-sync/core/utils"
)

// Category selects the per-object-kind tags and name transform.
type Category string

const (
	CategorySite   Category = "site"
	CategoryDevice Category = "device"
	CategoryVLAN   Category = "vlan"
	CategoryPrefix Category = "prefix"
	CategorySSID   Category = "ssid"
)

// DefaultTag is the managed tag used when a category has no tags configured.
const DefaultTag = "Meraki"

var defaultRoles = map[string]string{
	"MX": "Security Appliance",
	"MS": "Switch",
	"MR": "Wireless AP",
	"MG": "Cellular Gateway",
	"MV": "Camera",
	"MT": "Sensor",
}

const defaultRole = "Network Device"

// Settings is the immutable snapshot a sync run works with.
type Settings struct {
	roles       map[string]string
	defaultRole string
	transforms  map[Category]rules.Transform
	tags        map[Category][]string

	ProcessUnmatchedSites bool
	EnableAPIThrottling   bool
	APIRequestsPerSecond  int
	EnableMultithreading  bool
	MaxWorkerThreads      int
	RetentionDays         int
	MatchTimeout          time.Duration
}

// Snapshot freezes a settings row. cfg supplies the values that are not stored in the row.
func Snapshot(row *PluginSettings, cfg Config) Settings {
	if row == nil {
		row = newDefaults(cfg)
	}
	s := Settings{
		roles: map[string]string{
			"MX": row.MXDeviceRole,
			"MS": row.MSDeviceRole,
			"MR": row.MRDeviceRole,
			"MG": row.MGDeviceRole,
			"MV": row.MVDeviceRole,
			"MT": row.MTDeviceRole,
		},
		defaultRole: row.DefaultDeviceRole,
		transforms: map[Category]rules.Transform{
			CategorySite:   rules.Transform(row.SiteNameTransform),
			CategoryDevice: rules.Transform(row.DeviceNameTransform),
			CategoryVLAN:   rules.Transform(row.VLANNameTransform),
			CategorySSID:   rules.Transform(row.SSIDNameTransform),
		},
		tags: map[Category][]string{
			CategorySite:   splitTags(row.SiteTags),
			CategoryDevice: splitTags(row.DeviceTags),
			CategoryVLAN:   splitTags(row.VLANTags),
			CategoryPrefix: splitTags(row.PrefixTags),
		},
		ProcessUnmatchedSites: row.ProcessUnmatchedSites,
		EnableAPIThrottling:   row.EnableAPIThrottling,
		APIRequestsPerSecond:  row.APIRequestsPerSecond,
		EnableMultithreading:  row.EnableMultithreading,
		MaxWorkerThreads:      row.MaxWorkerThreads,
		RetentionDays:         cfg.RetentionDays,
		MatchTimeout:          time.Duration(cfg.MatchTimeoutMillis) * time.Millisecond,
	}

	for prefix, role := range s.roles {
		if strings.TrimSpace(role) == "" {
			s.roles[prefix] = defaultRoles[prefix]
		}
	}
	if strings.TrimSpace(s.defaultRole) == "" {
		s.defaultRole = defaultRole
	}
	if s.RetentionDays <= 0 {
		s.RetentionDays = 7
	}
	if s.MaxWorkerThreads <= 0 {
		s.MaxWorkerThreads = 1
	}
	if s.MatchTimeout <= 0 {
		s.MatchTimeout = rules.DefaultMatchTimeout
	}
	return s
}

// Default returns the snapshot built from configuration defaults only.
func Default() Settings {
	return Snapshot(nil, Config{ProcessUnmatchedSites: true, EnableAPIThrottling: true, APIRequestsPerSecond: 5})
}

// RoleFor maps a two-letter product prefix to a device role name.
func (s Settings) RoleFor(productPrefix string) string {
	if role, ok := s.roles[strings.ToUpper(productPrefix)]; ok {
		return role
	}
	return s.defaultRole
}

// Transform returns the case transform of a category.
func (s Settings) Transform(c Category) rules.Transform {
	if t, ok := s.transforms[c]; ok && t.Valid() {
		return t
	}
	return rules.TransformKeep
}

// TransformName applies the category transform to a name.
func (s Settings) TransformName(c Category, name string) string {
	return rules.TransformName(name, s.Transform(c))
}

// Tags returns a copy of the tag names attached to objects of a category.
func (s Settings) Tags(c Category) []string {
	tags := s.tags[c]
	if len(tags) == 0 {
		return []string{DefaultTag}
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// ManagedTag is the tag that marks objects as owned by the sync for a category.
func (s Settings) ManagedTag(c Category) string {
	return s.Tags(c)[0]
}

func splitTags(raw string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tag := range utils.SplitList(raw) {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
