package attach

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/internal/backend"
	"github.com/chatforge/attach/internal/keygen"
	"github.com/chatforge/attach/internal/retry"
	"github.com/chatforge/attach/internal/storageapi"
	"github.com/chatforge/attach/internal/storeupload"
)

// Client represents an attachment client with configurable options.
// It is safe for concurrent use.
type Client struct {
	cfg      attachtypes.ClientConfig
	storage  storageapi.StorageAPI
	store    *storeupload.Uploader
	backend  *backend.Client
	resolver keygen.URLResolver
	retrier  *retry.Controller
	httpc    *http.Client
	log      *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates a new attachment client with the provided options.
//
// An API base URL and a token source are required. When a bucket is
// configured the client uploads directly to object storage using the AWS
// SDK; otherwise every upload is proxied through the backend's multipart
// endpoint.
//
// Example:
//
//	client, err := attach.New(
//		attach.WithAPIBaseURL("https://chat.example.com"),
//		attach.WithTokenSource(tokens),
//		attach.WithBucket("chat-uploads"),
//		attach.WithRegion("eu-west-1"),
//	)
func New(opts ...attachtypes.Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	var storage storageapi.StorageAPI
	if cfg.Bucket != "" {
		awsCfg := cfg.CustomAWSConfig
		if awsCfg == nil {
			loaded, err := awsconfig.LoadDefaultConfig(context.Background(),
				awsconfig.WithRegion(cfg.Region))
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS config: %w", err)
			}
			awsCfg = &loaded
		}
		storage = s3.NewFromConfig(*awsCfg)
	}

	return newClient(cfg, storage), nil
}

// NewWithStorage creates a new attachment client with a custom storage API
// implementation. This is primarily used for testing with mocked clients.
// The direct-storage upload path is always selected, regardless of whether
// a bucket name was configured.
func NewWithStorage(storage storageapi.StorageAPI, opts ...attachtypes.Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return newClient(cfg, storage), nil
}

func defaultConfig() attachtypes.ClientConfig {
	return attachtypes.ClientConfig{
		Region:         "us-east-1",
		MaxUploadBytes: 100 * 1024 * 1024,
		RetryAttempts:  3,
		RetryBaseDelay: 500 * time.Millisecond,
		Classes:        attachtypes.DefaultClasses(),
		Filesystem:     billy.NewOSFS("/"),
		Logger:         slog.New(slog.DiscardHandler),
	}
}

func validateConfig(cfg *attachtypes.ClientConfig) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if cfg.TokenSource == nil {
		return fmt.Errorf("token source is required")
	}
	if len(cfg.Classes) == 0 {
		cfg.Classes = attachtypes.DefaultClasses()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return nil
}

func newClient(cfg attachtypes.ClientConfig, storage storageapi.StorageAPI) *Client {
	httpClient := cfg.CustomHTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	bucketURL := cfg.BucketURL
	if bucketURL == "" && cfg.Bucket != "" {
		bucketURL = keygen.BucketURL(cfg.Bucket, cfg.Region)
	}

	c := &Client{
		cfg:     cfg,
		storage: storage,
		backend: backend.New(httpClient, cfg.APIBaseURL, cfg.TokenSource),
		resolver: keygen.URLResolver{
			CDNDomain: cfg.CDNDomain,
			BucketURL: bucketURL,
		},
		retrier: retry.New(cfg.RetryAttempts, cfg.RetryBaseDelay, cfg.Logger),
		httpc:   httpClient,
		log:     cfg.Logger,
		cancels: make(map[string]context.CancelFunc),
	}
	if storage != nil {
		c.store = storeupload.New(storage, cfg.Bucket)
	}
	return c
}

// NewTicket returns a fresh cancellation ticket for use with WithTicket.
// Tickets are opaque and unique per call.
func (c *Client) NewTicket() string {
	return uuid.NewString()
}

// Cancel aborts the in-flight upload registered under ticket.
//
// Returns:
//   - true if an upload was registered under the ticket and has been signalled
//   - false if the ticket is unknown or the upload already finished
func (c *Client) Cancel(ticket string) bool {
	c.mu.Lock()
	cancel, ok := c.cancels[ticket]
	delete(c.cancels, ticket)
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// registerTicket derives a cancellable context for the upload and records
// its cancel func under ticket. The returned release func removes the entry
// and must be called when the upload finishes.
func (c *Client) registerTicket(ctx context.Context, ticket string) (context.Context, func()) {
	if ticket == "" {
		return ctx, func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancels[ticket] = cancel
	c.mu.Unlock()
	return ctx, func() {
		c.mu.Lock()
		delete(c.cancels, ticket)
		c.mu.Unlock()
		cancel()
	}
}
