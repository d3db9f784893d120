// Package testutil provides test utilities and mocks for attachment transfer
// operations. This package is internal and should only be used for testing
// within the attach module.
package testutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chatforge/attach/internal/storageapi"
)

// MockStorageClient is a mock implementation of the StorageAPI interface.
// Each operation can be customized through its function field; unset fields
// return empty successful responses.
type MockStorageClient struct {
	PutObjectFunc func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)

	// PutObjectCalls records every PutObject input for assertion
	PutObjectCalls []*s3.PutObjectInput
}

// PutObject mocks the storage PutObject operation.
func (m *MockStorageClient) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	optFns ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	m.PutObjectCalls = append(m.PutObjectCalls, params)
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

// Ensure MockStorageClient implements the storageapi.StorageAPI interface
var _ storageapi.StorageAPI = (*MockStorageClient)(nil)
