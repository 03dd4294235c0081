package main

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
)

// Config holds the complete tool configuration, loadable from environment
// variables (PRIXNC_ prefix), flags, or YAML config files.
type Config struct {
	BaseURL   string `default:"https://prix.nc" usage:"Upstream API base URL" flag:"base-url"`
	APIKey    string `usage:"API key sent as X-API-Key (PRIXNC_API_KEY)" flag:"api-key"`
	OutputDir string `default:"." usage:"Destination folder for artifacts" flag:"output-dir"`
	Name      string `default:"produits" usage:"Artifact base name (<name>.csv/.xlsx/.pdf)"`
	Formats   []string `default:"csv,xlsx,pdf" usage:"Artifact formats to produce"`
	Title     string `default:"prix.nc product catalogue" usage:"PDF report title"`

	PageSize int `default:"500" usage:"Items per page request" flag:"page-size"`
	MaxPages int `default:"200" usage:"Safety bound on page requests (0 = unbounded)" flag:"max-pages"`

	MaxRetries int           `default:"5" usage:"Retries per page after the initial attempt" flag:"max-retries"`
	BaseDelay  time.Duration `default:"1s" usage:"Initial retry backoff" flag:"base-delay"`
	MaxDelay   time.Duration `default:"30s" usage:"Retry backoff cap" flag:"max-delay"`
	Timeout    time.Duration `default:"10s" usage:"Per-attempt request timeout"`

	ExportPartial bool `default:"false" usage:"Export records fetched before a fatal error" flag:"export-partial"`

	RedisURL string        `usage:"Optional Redis address enabling the page cache" flag:"redis-url"`
	CacheTTL time.Duration `default:"1h" usage:"Page cache TTL" flag:"cache-ttl"`

	LogLevel  string `default:"info" usage:"Log level (debug, info, warn, error)" flag:"log-level"`
	LogPretty bool   `default:"false" usage:"Human-readable log output" flag:"log-pretty"`
}

// LoadConfig loads configuration from flags, environment variables, and YAML
// config files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PRIXNC",
		Files:     []string{"config.yaml", "/etc/prixnc/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
