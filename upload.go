package attach

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/errors"
	"github.com/chatforge/attach/internal/backend"
	"github.com/chatforge/attach/internal/keygen"
	"github.com/chatforge/attach/internal/validation"
)

// Upload validates the file against the configured class policy, transfers
// its content, and persists the resulting metadata with the backend.
//
// On the direct-storage path the bytes are put into the bucket first and the
// metadata is recorded afterwards; on the proxied path the backend handles
// both in one request. The returned record reflects the backend's view of
// the stored file.
//
// Returns:
//   - *attachtypes.UploadResult: the persisted record, the matched class
//     name, and the elapsed time
//   - error: validation, transfer, authentication, or persistence failure
//
// Example:
//
//	result, err := client.Upload(ctx, attachtypes.UploadRequest{
//		Name: "photo.png",
//		Body: file,
//	}, attach.WithProgress(tracker))
func (c *Client) Upload(
	ctx context.Context,
	req attachtypes.UploadRequest,
	opts ...attachtypes.UploadOption,
) (*attachtypes.UploadResult, error) {
	data, err := readBody(req)
	if err != nil {
		return nil, err
	}
	return c.uploadBytes(ctx, req, data, applyUploadOptions(opts))
}

// UploadFile uploads the file at the given path on the configured
// filesystem. The original filename is taken from the path's base name.
func (c *Client) UploadFile(
	ctx context.Context,
	path string,
	opts ...attachtypes.UploadOption,
) (*attachtypes.UploadResult, error) {
	info, err := c.cfg.Filesystem.Stat(path)
	if err != nil {
		return nil, errors.NewError("uploadFile", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}

	file, err := c.cfg.Filesystem.Open(path)
	if err != nil {
		return nil, errors.NewError("uploadFile", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	defer file.Close()

	return c.Upload(ctx, attachtypes.UploadRequest{
		Name: filepath.Base(path),
		Size: info.Size(),
		Body: file,
	}, opts...)
}

// UploadWithRetry behaves like Upload but re-attempts the transfer on
// retryable failures, waiting the configured base delay multiplied by the
// attempt number between tries. Validation and authentication failures are
// terminal and never retried.
func (c *Client) UploadWithRetry(
	ctx context.Context,
	req attachtypes.UploadRequest,
	opts ...attachtypes.UploadOption,
) (*attachtypes.UploadResult, error) {
	data, err := readBody(req)
	if err != nil {
		return nil, err
	}
	optCfg := applyUploadOptions(opts)

	var result *attachtypes.UploadResult
	err = c.retrier.Do(ctx, func(ctx context.Context) error {
		var uerr error
		result, uerr = c.uploadBytes(ctx, req, data, optCfg)
		return uerr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// uploadBytes runs one complete upload attempt over an in-memory copy of the
// content, so retries never depend on a re-readable body.
func (c *Client) uploadBytes(
	ctx context.Context,
	req attachtypes.UploadRequest,
	data []byte,
	optCfg attachtypes.UploadOptionConfig,
) (*attachtypes.UploadResult, error) {
	start := time.Now()
	tracker := optCfg.ProgressTracker

	size := int64(len(data))
	contentType := req.ContentType
	if contentType == "" {
		contentType = validation.DetectContentType(data, req.Name)
	}

	class, err := validation.Validate(req.Name, contentType, size, c.cfg.Classes, c.cfg.MaxUploadBytes)
	if err != nil {
		if tracker != nil {
			tracker.Error(err)
		}
		return nil, err
	}

	ctx, release := c.registerTicket(ctx, optCfg.Ticket)
	defer release()

	var record *attachtypes.FileRecord
	if c.store != nil {
		record, err = c.directUpload(ctx, req.Name, contentType, data, class, tracker)
	} else {
		record, err = c.backend.UploadMultipart(ctx, req.Name, contentType, data, tracker)
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug("upload complete",
		"key", record.Key,
		"class", class.Name,
		"size", size,
	)

	return &attachtypes.UploadResult{
		Record:   *record,
		Class:    class.Name,
		Duration: time.Since(start),
	}, nil
}

// directUpload puts the bytes into the bucket and then records the metadata.
// When persistence fails the object is left behind under its key; the key is
// carried on the returned error so callers can reconcile it.
func (c *Client) directUpload(
	ctx context.Context,
	name, contentType string,
	data []byte,
	class *attachtypes.FileClass,
	tracker attachtypes.ProgressTracker,
) (*attachtypes.FileRecord, error) {
	key := keygen.Key(class.Folder, name, time.Now())

	etag, err := c.store.Upload(ctx, key, data, contentType, tracker)
	if err != nil {
		return nil, err
	}

	record, err := c.backend.PersistMetadata(ctx, backend.Metadata{
		S3Key:        key,
		URL:          c.resolver.Resolve(key),
		OriginalName: name,
		MimeType:     contentType,
		Size:         int64(len(data)),
		ETag:         etag,
	})
	if err != nil {
		c.log.Warn("metadata persistence failed, stored object is orphaned", "key", key)
		if tracker != nil {
			tracker.Error(err)
		}
		return nil, err
	}

	return record, nil
}

func readBody(req attachtypes.UploadRequest) ([]byte, error) {
	if req.Body == nil {
		return nil, errors.NewError("upload", errors.ErrValidation).
			WithMessage("no file content provided")
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, errors.NewError("upload", fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	return data, nil
}

func applyUploadOptions(opts []attachtypes.UploadOption) attachtypes.UploadOptionConfig {
	var cfg attachtypes.UploadOptionConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
