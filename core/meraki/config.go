package meraki

// Config holds configuration for the Meraki Dashboard API client.
type Config struct {
	// APIKey is the Dashboard API key sent as X-Cisco-Meraki-API-Key.
	APIKey string `mapstructure:"api_key" default:""`
	// BaseURL is the Dashboard API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.meraki.com/api/v1"`
	// TimeoutSeconds bounds every single HTTP request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Throttle enables the client-side token bucket.
	Throttle bool `mapstructure:"throttle" default:"true"`
	// RequestsPerSecond is the token refill rate when Throttle is on.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"5"`
	// Burst is the token bucket size.
	Burst int `mapstructure:"burst" default:"1"`
	// MaxRetries is the number of retries after the first attempt on 429/5xx.
	MaxRetries int `mapstructure:"max_retries" default:"5"`
	// InitialBackoffMillis is the first retry delay.
	InitialBackoffMillis int `mapstructure:"initial_backoff_millis" default:"500"`
	// MaxBackoffSeconds caps a single retry delay, including Retry-After hints.
	MaxBackoffSeconds int `mapstructure:"max_backoff_seconds" default:"30"`
	// PerPage is the page size requested from paginated endpoints.
	PerPage int `mapstructure:"per_page" default:"1000"`
}
