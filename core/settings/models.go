package settings

import "time"

// PluginSettings is the persisted singleton row editable over HTTP.
type PluginSettings struct {
	ID uint `gorm:"primaryKey" json:"id"`

	MXDeviceRole      string `gorm:"size:100" json:"mx_device_role"`
	MSDeviceRole      string `gorm:"size:100" json:"ms_device_role"`
	MRDeviceRole      string `gorm:"size:100" json:"mr_device_role"`
	MGDeviceRole      string `gorm:"size:100" json:"mg_device_role"`
	MVDeviceRole      string `gorm:"size:100" json:"mv_device_role"`
	MTDeviceRole      string `gorm:"size:100" json:"mt_device_role"`
	DefaultDeviceRole string `gorm:"size:100" json:"default_device_role"`

	ProcessUnmatchedSites bool `json:"process_unmatched_sites"`

	SiteNameTransform   string `gorm:"size:20" json:"site_name_transform"`
	DeviceNameTransform string `gorm:"size:20" json:"device_name_transform"`
	VLANNameTransform   string `gorm:"column:vlan_name_transform;size:20" json:"vlan_name_transform"`
	SSIDNameTransform   string `gorm:"column:ssid_name_transform;size:20" json:"ssid_name_transform"`

	SiteTags   string `gorm:"size:255" json:"site_tags"`
	DeviceTags string `gorm:"size:255" json:"device_tags"`
	VLANTags   string `gorm:"column:vlan_tags;size:255" json:"vlan_tags"`
	PrefixTags string `gorm:"size:255" json:"prefix_tags"`

	EnableAPIThrottling  bool `gorm:"column:enable_api_throttling" json:"enable_api_throttling"`
	APIRequestsPerSecond int  `gorm:"column:api_requests_per_second" json:"api_requests_per_second"`
	EnableMultithreading bool `json:"enable_multithreading"`
	MaxWorkerThreads     int  `json:"max_worker_threads"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (PluginSettings) TableName() string {
	return "sync_plugin_settings"
}

// Models returns the tables owned by this package.
func Models() []any {
	return []any{&PluginSettings{}}
}

// newDefaults builds the first row from configuration.
func newDefaults(cfg Config) *PluginSettings {
	return &PluginSettings{
		ID:                    1,
		MXDeviceRole:          cfg.MXRole,
		MSDeviceRole:          cfg.MSRole,
		MRDeviceRole:          cfg.MRRole,
		MGDeviceRole:          cfg.MGRole,
		MVDeviceRole:          cfg.MVRole,
		MTDeviceRole:          cfg.MTRole,
		DefaultDeviceRole:     cfg.DefaultRole,
		ProcessUnmatchedSites: cfg.ProcessUnmatchedSites,
		SiteNameTransform:     cfg.SiteNameTransform,
		DeviceNameTransform:   cfg.DeviceNameTransform,
		VLANNameTransform:     cfg.VLANNameTransform,
		SSIDNameTransform:     cfg.SSIDNameTransform,
		SiteTags:              cfg.SiteTags,
		DeviceTags:            cfg.DeviceTags,
		VLANTags:              cfg.VLANTags,
		PrefixTags:            cfg.PrefixTags,
		EnableAPIThrottling:   cfg.EnableAPIThrottling,
		APIRequestsPerSecond:  cfg.APIRequestsPerSecond,
		EnableMultithreading:  cfg.EnableMultithreading,
		MaxWorkerThreads:      cfg.MaxWorkerThreads,
	}
}
