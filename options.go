package attach

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/chatforge/attach/attachtypes"
)

// WithAPIBaseURL sets the base URL of the chat backend API.
func WithAPIBaseURL(url string) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.APIBaseURL = url
	}
}

// WithBucket sets the object-storage bucket and selects the direct-storage
// upload path.
func WithBucket(bucket string) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Bucket = bucket
	}
}

// WithRegion sets the AWS region used for direct-storage uploads.
func WithRegion(region string) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Region = region
	}
}

// WithBucketURL overrides the public base URL objects are served from.
// When unset it is derived from the bucket and region.
func WithBucketURL(url string) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.BucketURL = url
	}
}

// WithCDNDomain sets the CDN domain used when resolving file URLs.
// A configured CDN domain takes precedence over the bucket URL.
func WithCDNDomain(domain string) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.CDNDomain = domain
	}
}

// WithMaxUploadBytes sets the global upload size ceiling. Per-class limits
// still apply when they are lower.
func WithMaxUploadBytes(n int64) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.MaxUploadBytes = n
	}
}

// WithRetryPolicy sets the attempt count and base delay used by
// UploadWithRetry. The delay before attempt n is base multiplied by n.
func WithRetryPolicy(attempts int, baseDelay time.Duration) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.RetryAttempts = attempts
		cfg.RetryBaseDelay = baseDelay
	}
}

// WithTimeout sets the timeout applied to backend HTTP requests.
func WithTimeout(d time.Duration) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Timeout = d
	}
}

// WithTokenSource sets the source of authentication credentials attached to
// backend requests.
func WithTokenSource(ts attachtypes.TokenSource) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.TokenSource = ts
	}
}

// WithClasses replaces the default file-class policy. Classes are matched
// in order; the first match wins.
func WithClasses(classes []attachtypes.FileClass) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Classes = classes
	}
}

// WithAWSConfig sets a custom AWS configuration for the storage client.
// When provided, the default config loader is skipped entirely.
func WithAWSConfig(awsCfg aws.Config) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.CustomAWSConfig = &awsCfg
	}
}

// WithHTTPClient sets a custom HTTP client for backend requests.
func WithHTTPClient(client *http.Client) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.CustomHTTPClient = client
	}
}

// WithFilesystem sets a custom filesystem implementation for file-based
// operations. This is primarily used for testing with in-memory filesystems.
func WithFilesystem(filesystem fs.Filesystem) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Filesystem = filesystem
	}
}

// WithLogger sets the structured logger. Logging is disabled by default.
func WithLogger(log *slog.Logger) attachtypes.Option {
	return func(cfg *attachtypes.ClientConfig) {
		cfg.Logger = log
	}
}

// WithProgress attaches a progress tracker to an upload.
func WithProgress(tracker attachtypes.ProgressTracker) attachtypes.UploadOption {
	return func(cfg *attachtypes.UploadOptionConfig) {
		cfg.ProgressTracker = tracker
	}
}

// WithTicket registers the upload under a cancellation ticket obtained from
// NewTicket, so it can be aborted with Cancel.
func WithTicket(ticket string) attachtypes.UploadOption {
	return func(cfg *attachtypes.UploadOptionConfig) {
		cfg.Ticket = ticket
	}
}

// WithDownloadProgress attaches a progress tracker to a download.
func WithDownloadProgress(tracker attachtypes.ProgressTracker) attachtypes.DownloadOption {
	return func(cfg *attachtypes.DownloadOptionConfig) {
		cfg.ProgressTracker = tracker
	}
}
