package attach

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/errors"
)

// FileURL resolves a storage key to its retrieval URL, preferring the CDN
// domain over the bucket endpoint.
//
// Returns:
//   - string: the retrieval URL
//   - error: when neither a CDN domain nor a bucket URL is configured
func (c *Client) FileURL(key string) (string, error) {
	if key == "" {
		return "", errors.NewError("fileURL", errors.ErrInvalidInput).
			WithMessage("empty key")
	}
	url := c.resolver.Resolve(key)
	if url == "" {
		return "", errors.NewError("fileURL", errors.ErrRetrieval).
			WithKey(key).
			WithMessage("no CDN domain or bucket URL configured")
	}
	return url, nil
}

// SaveName returns the filename a record should be saved under locally: the
// original name when known, otherwise the base of the storage key.
func SaveName(rec attachtypes.FileRecord) string {
	if rec.Name != "" {
		return rec.Name
	}
	if rec.Key != "" {
		return path.Base(rec.Key)
	}
	return "download"
}

// Download fetches a stored file and streams it to w. The source may be a
// storage key, which is resolved to a URL first, or a full URL.
//
// Progress is reported against the Content-Length header; when the server
// omits it the tracker only receives Complete.
//
// Returns:
//   - *attachtypes.DownloadResult: the fetched URL, bytes written, and
//     elapsed time
//   - error: resolution or transfer failure
func (c *Client) Download(
	ctx context.Context,
	source string,
	w io.Writer,
	opts ...attachtypes.DownloadOption,
) (*attachtypes.DownloadResult, error) {
	var optCfg attachtypes.DownloadOptionConfig
	for _, opt := range opts {
		opt(&optCfg)
	}
	tracker := optCfg.ProgressTracker

	url := source
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		resolved, err := c.FileURL(source)
		if err != nil {
			return nil, err
		}
		url = resolved
	}

	start := time.Now()

	written, err := c.fetch(ctx, url, w, tracker)
	if err != nil {
		if tracker != nil {
			tracker.Error(err)
		}
		return nil, err
	}

	if tracker != nil {
		tracker.Complete()
	}

	return &attachtypes.DownloadResult{
		URL:      url,
		Size:     written,
		Duration: time.Since(start),
	}, nil
}

// DownloadFile fetches a stored file and writes it to path on the configured
// filesystem.
func (c *Client) DownloadFile(
	ctx context.Context,
	source, filePath string,
	opts ...attachtypes.DownloadOption,
) (*attachtypes.DownloadResult, error) {
	file, err := c.cfg.Filesystem.Create(filePath)
	if err != nil {
		return nil, errors.NewError("downloadFile", fmt.Errorf("%w: %w", errors.ErrRetrieval, err))
	}
	defer file.Close()

	return c.Download(ctx, source, file, opts...)
}

// fetch performs one GET and copies the body to w, reporting progress as
// bytes arrive.
func (c *Client) fetch(
	ctx context.Context,
	url string,
	w io.Writer,
	tracker attachtypes.ProgressTracker,
) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.NewError("download", fmt.Errorf("%w: %w", errors.ErrRetrieval, err))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return 0, errors.NewError("download", fmt.Errorf("%w: %w", errors.ErrCancelled, err))
		}
		return 0, errors.NewError("download", fmt.Errorf("%w: %w", errors.ErrRetrieval, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, errors.NewError("download", errors.ErrRetrieval).
			WithMessage(fmt.Sprintf("server returned status %d", resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	if tracker != nil && resp.ContentLength > 0 {
		reader = &progressReader{
			reader:  resp.Body,
			tracker: tracker,
			total:   resp.ContentLength,
		}
	}

	written, err := io.Copy(w, reader)
	if err != nil {
		return written, errors.NewError("download", fmt.Errorf("%w: %w", errors.ErrRetrieval, err))
	}
	return written, nil
}

// progressReader reports read progress to a tracker as the body is consumed.
type progressReader struct {
	reader  io.Reader
	tracker attachtypes.ProgressTracker
	total   int64
	read    int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.tracker.Update(r.read, r.total)
	}
	return n, err
}
