// Package attachtypes provides shared type definitions for the attach module.
package attachtypes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

// FileClass groups the upload policy for one media category: the extensions
// and MIME types it accepts, its size cap, and the storage folder its objects
// land in.
type FileClass struct {
	// Name is the human-readable class name (e.g. "Image")
	Name string

	// Folder is the storage sub-path under the uploads prefix
	Folder string

	// Extensions is the set of accepted file extensions, lowercased with dot
	Extensions []string

	// MIMETypes is the set of accepted MIME types
	MIMETypes []string

	// MaxBytes is the per-class size cap
	MaxBytes int64
}

// DefaultClasses returns the built-in upload policy. Order matters: classes
// are matched first to last, and the first match wins.
func DefaultClasses() []FileClass {
	return []FileClass{
		{
			Name:       "Image",
			Folder:     "images",
			Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"},
			MIMETypes:  []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml"},
			MaxBytes:   10 << 20,
		},
		{
			Name:       "Video",
			Folder:     "videos",
			Extensions: []string{".mp4", ".webm", ".mov", ".avi", ".mkv"},
			MIMETypes:  []string{"video/mp4", "video/webm", "video/quicktime", "video/x-msvideo", "video/x-matroska"},
			MaxBytes:   100 << 20,
		},
		{
			Name:       "Audio",
			Folder:     "audio",
			Extensions: []string{".mp3", ".wav", ".ogg", ".m4a", ".flac"},
			MIMETypes:  []string{"audio/mpeg", "audio/wav", "audio/x-wav", "audio/ogg", "audio/mp4", "audio/flac"},
			MaxBytes:   20 << 20,
		},
		{
			Name:   "Document",
			Folder: "documents",
			Extensions: []string{
				".pdf", ".doc", ".docx", ".txt", ".md", ".csv", ".xls", ".xlsx", ".ppt", ".pptx",
			},
			MIMETypes: []string{
				"application/pdf",
				"application/msword",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"text/plain",
				"text/markdown",
				"text/csv",
				"application/vnd.ms-excel",
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"application/vnd.ms-powerpoint",
				"application/vnd.openxmlformats-officedocument.presentationml.presentation",
			},
			MaxBytes: 25 << 20,
		},
		{
			Name:       "Archive",
			Folder:     "archives",
			Extensions: []string{".zip", ".rar", ".7z", ".tar", ".gz"},
			MIMETypes: []string{
				"application/zip",
				"application/x-zip-compressed",
				"application/vnd.rar",
				"application/x-rar-compressed",
				"application/x-7z-compressed",
				"application/x-tar",
				"application/gzip",
			},
			MaxBytes: 50 << 20,
		},
	}
}

// UploadRequest describes a candidate file for upload.
type UploadRequest struct {
	// Name is the original filename, used for class matching and metadata
	Name string

	// ContentType is the declared MIME type. When empty, the content type is
	// detected from the file bytes and extension.
	ContentType string

	// Size is the declared byte size, informational only. Validation and the
	// persisted metadata use the measured length of the content actually read.
	Size int64

	// Body supplies the file content
	Body io.Reader
}

// FileRecord is the server-confirmed metadata for a stored file. It exists
// only once both the bytes are durably stored and the backend has
// acknowledged the metadata.
type FileRecord struct {
	// ID is the backend identifier for the record
	ID string

	// Key is the storage key under which the bytes live
	Key string

	// Name is the original filename
	Name string

	// ContentType is the MIME type of the stored bytes
	ContentType string

	// Size is the stored size in bytes
	Size int64

	// URL is the retrieval URL (CDN or direct storage endpoint)
	URL string

	// ETag is the storage integrity tag, when the store reported one
	ETag string
}

// UploadResult contains the outcome of a successful upload.
type UploadResult struct {
	// Record is the persisted file metadata
	Record FileRecord

	// Class is the name of the matched FileClass
	Class string

	// Duration is how long the upload took
	Duration time.Duration
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// URL is the retrieval URL that was fetched
	URL string

	// Size is the number of bytes written
	Size int64

	// Duration is how long the download took
	Duration time.Duration
}

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during uploads and
// downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// percentTracker adapts an integer-percentage callback to ProgressTracker.
type percentTracker struct {
	fn   func(percent int)
	last int
}

// NewPercentTracker wraps a percentage callback as a ProgressTracker. The
// callback receives values in [0, 100], rounded to the nearest integer, and
// is never called twice in a row with the same value.
func NewPercentTracker(fn func(percent int)) ProgressTracker {
	return &percentTracker{fn: fn, last: -1}
}

func (p *percentTracker) Update(transferred, total int64) {
	if total <= 0 {
		return
	}
	pct := int((transferred*100 + total/2) / total)
	if pct > 100 {
		pct = 100
	}
	if pct != p.last {
		p.last = pct
		p.fn(pct)
	}
}

func (p *percentTracker) Complete() {
	if p.last != 100 {
		p.last = 100
		p.fn(100)
	}
}

func (p *percentTracker) Error(error) {}

// TokenSource supplies session credentials and a refresh operation. It is the
// seam to the external authentication collaborator.
type TokenSource interface {
	// Token returns the current session token and session identifier
	Token() (token, sessionID string, err error)

	// Refresh obtains fresh session credentials
	Refresh(ctx context.Context) error
}

// ClientConfig holds configuration for the attach client. All settings are
// explicit; there is no ambient global state.
type ClientConfig struct {
	APIBaseURL       string
	Bucket           string
	Region           string
	BucketURL        string
	CDNDomain        string
	MaxUploadBytes   int64
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	Timeout          time.Duration
	Classes          []FileClass
	TokenSource      TokenSource
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Filesystem       fs.Filesystem
	Logger           *slog.Logger
}

// UploadOptionConfig holds per-upload configuration via functional options.
type UploadOptionConfig struct {
	ProgressTracker ProgressTracker
	Ticket          string
}

// DownloadOptionConfig holds per-download configuration via functional options.
type DownloadOptionConfig struct {
	ProgressTracker ProgressTracker
}

// Option is a functional option for configuring the attach client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
)
