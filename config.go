package attach

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/chatforge/attach/attachtypes"
)

// Config holds client settings sourced from the environment. Variables are
// read with the ATTACH_ prefix, e.g. ATTACH_API_BASE_URL.
type Config struct {
	APIBaseURL     string        `envconfig:"API_BASE_URL" required:"true"`
	Bucket         string        `envconfig:"BUCKET"`
	Region         string        `envconfig:"REGION" default:"us-east-1"`
	BucketURL      string        `envconfig:"BUCKET_URL"`
	CDNDomain      string        `envconfig:"CDN_DOMAIN"`
	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"104857600"`
	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"500ms"`
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"0"`
}

// FromEnv populates a Config from environment variables.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("attach", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// Options converts the environment config into client options. Settings the
// environment cannot express, such as the token source, are passed alongside:
//
//	cfg, _ := attach.FromEnv()
//	client, err := attach.New(append(cfg.Options(), attach.WithTokenSource(ts))...)
func (c *Config) Options() []attachtypes.Option {
	return []attachtypes.Option{
		WithAPIBaseURL(c.APIBaseURL),
		WithBucket(c.Bucket),
		WithRegion(c.Region),
		WithBucketURL(c.BucketURL),
		WithCDNDomain(c.CDNDomain),
		WithMaxUploadBytes(c.MaxUploadBytes),
		WithRetryPolicy(c.RetryAttempts, c.RetryBaseDelay),
		WithTimeout(c.Timeout),
	}
}
