package settings

// Config holds the defaults used when the settings row is first created.
type Config struct {
	// MXRole is the device role for security appliances.
	MXRole string `mapstructure:"mx_role" default:"Security Appliance"`
	// MSRole is the device role for switches.
	MSRole string `mapstructure:"ms_role" default:"Switch"`
	// MRRole is the device role for wireless access points.
	MRRole string `mapstructure:"mr_role" default:"Wireless AP"`
	// MGRole is the device role for cellular gateways.
	MGRole string `mapstructure:"mg_role" default:"Cellular Gateway"`
	// MVRole is the device role for cameras.
	MVRole string `mapstructure:"mv_role" default:"Camera"`
	// MTRole is the device role for sensors.
	MTRole string `mapstructure:"mt_role" default:"Sensor"`
	// DefaultRole is used for unknown product types.
	DefaultRole string `mapstructure:"default_role" default:"Network Device"`
	// ProcessUnmatchedSites keeps the network name when no name rule matches.
	ProcessUnmatchedSites bool `mapstructure:"process_unmatched_sites" default:"true"`
	// SiteTags, DeviceTags, VLANTags and PrefixTags are comma separated tag names.
	SiteTags   string `mapstructure:"site_tags" default:"Meraki"`
	DeviceTags string `mapstructure:"device_tags" default:"Meraki"`
	VLANTags   string `mapstructure:"vlan_tags" default:"Meraki"`
	PrefixTags string `mapstructure:"prefix_tags" default:"Meraki"`
	// Name transforms: keep, upper, lower or title.
	SiteNameTransform   string `mapstructure:"site_name_transform" default:"keep"`
	DeviceNameTransform string `mapstructure:"device_name_transform" default:"keep"`
	VLANNameTransform   string `mapstructure:"vlan_name_transform" default:"keep"`
	SSIDNameTransform   string `mapstructure:"ssid_name_transform" default:"keep"`
	// EnableAPIThrottling and APIRequestsPerSecond drive the inventory client limiter.
	EnableAPIThrottling  bool `mapstructure:"enable_api_throttling" default:"true"`
	APIRequestsPerSecond int  `mapstructure:"api_requests_per_second" default:"5"`
	// EnableMultithreading prefetches network inventory with MaxWorkerThreads workers.
	EnableMultithreading bool `mapstructure:"enable_multithreading" default:"false"`
	MaxWorkerThreads     int  `mapstructure:"max_worker_threads" default:"3"`
	// RetentionDays is how long finished review sessions are kept.
	RetentionDays int `mapstructure:"retention_days" default:"7"`
	// MatchTimeoutMillis bounds a single rule pattern evaluation.
	MatchTimeoutMillis int `mapstructure:"match_timeout_millis" default:"100"`
	// ScheduleTick is the cron spec of the scheduled task runner.
	ScheduleTick string `mapstructure:"schedule_tick" default:"@every 1m"`
}
