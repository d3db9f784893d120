// Package storageapi defines the interface over object storage operations to
// enable testing and mocking.
package storageapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// StorageAPI defines the object-storage operations used by this module.
// The interface is deliberately narrow: the coordinator only ever issues
// single-object puts; retrieval goes through the CDN-facing URL instead.
type StorageAPI interface {
	// PutObject uploads an object to the store
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Verify that the AWS S3 client implements our interface
var _ StorageAPI = (*s3.Client)(nil)
