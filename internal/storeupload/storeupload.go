// Package storeupload handles the direct-to-object-storage transfer path.
//
// Progress reporting on this path is coarse: the SDK does not expose
// byte-level upload progress, so the tracker receives a single update when
// the transfer completes. This is a documented transport limitation, not a
// bug to compensate for.
package storeupload

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/errors"
	"github.com/chatforge/attach/internal/storageapi"
)

// Uploader performs single-object puts against the configured bucket.
type Uploader struct {
	client storageapi.StorageAPI
	bucket string
}

// New creates a new Uploader instance.
func New(client storageapi.StorageAPI, bucket string) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
	}
}

// Upload puts the raw bytes under the given key with the file's MIME type as
// content type and returns the integrity tag the store reported, if any.
func (u *Uploader) Upload(
	ctx context.Context,
	key string,
	data []byte,
	contentType string,
	tracker attachtypes.ProgressTracker,
) (etag string, err error) {
	size := int64(len(data))

	input := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}

	output, err := u.client.PutObject(ctx, input)
	if err != nil {
		werr := wrapTransferError(err)
		if tracker != nil {
			tracker.Error(werr)
		}
		return "", errors.NewError("storeUpload", werr).WithKey(key)
	}

	// Single jump to completion; see the package comment.
	if tracker != nil {
		tracker.Update(size, size)
		tracker.Complete()
	}

	return aws.ToString(output.ETag), nil
}

// wrapTransferError ties an SDK failure to the matching sentinel while
// preserving the original error chain.
func wrapTransferError(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", errors.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %w", errors.ErrStorageTransfer, err)
}
