package attach

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/attach/attachtypes"
	attacherrors "github.com/chatforge/attach/errors"
	"github.com/chatforge/attach/internal/testutil"
)

var keyPattern = regexp.MustCompile(
	`^uploads/images/\d{13}-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.png$`)

// metadataOK serves the metadata endpoint with a fixed backend record ID.
func metadataOK(t *testing.T, gotBody *string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/files/metadata", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		*gotBody = string(body)
		_, _ = w.Write([]byte(`{"success":true,"data":{"file":{"_id":"665f1"}}}`))
	}
}

func newDirectClient(t *testing.T, storage *testutil.MockStorageClient, handler http.HandlerFunc, opts ...attachtypes.Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := []attachtypes.Option{
		WithAPIBaseURL(server.URL),
		WithTokenSource(&testutil.MockTokenSource{}),
		WithBucket("chat-uploads"),
		WithCDNDomain("cdn.example.com"),
		WithHTTPClient(server.Client()),
	}
	client, err := NewWithStorage(storage, append(base, opts...)...)
	require.NoError(t, err)
	return client
}

func TestUploadDirect(t *testing.T) {
	storage := &testutil.MockStorageClient{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return &s3.PutObjectOutput{ETag: aws.String(`"abc"`)}, nil
		},
	}
	var metadataBody string
	client := newDirectClient(t, storage, metadataOK(t, &metadataBody))

	content := []byte("file content")
	tracker := &testutil.MockProgressTracker{}
	result, err := client.Upload(context.Background(), attachtypes.UploadRequest{
		Name:        "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader(content),
	}, WithProgress(tracker))

	require.NoError(t, err)
	assert.Equal(t, "Image", result.Class)
	assert.Equal(t, "665f1", result.Record.ID)
	assert.Equal(t, "photo.png", result.Record.Name)
	assert.Equal(t, "image/png", result.Record.ContentType)
	assert.Equal(t, int64(len(content)), result.Record.Size)
	assert.Equal(t, `"abc"`, result.Record.ETag)

	assert.Regexp(t, keyPattern, result.Record.Key)
	assert.Equal(t, "https://cdn.example.com/"+result.Record.Key, result.Record.URL)

	require.Len(t, storage.PutObjectCalls, 1)
	assert.Equal(t, "chat-uploads", aws.ToString(storage.PutObjectCalls[0].Bucket))
	assert.Equal(t, result.Record.Key, aws.ToString(storage.PutObjectCalls[0].Key))

	assert.Contains(t, metadataBody, `"s3Key":"`+result.Record.Key+`"`)
	assert.Contains(t, metadataBody, `"etag":"\"abc\""`)

	// Direct path reports one coarse jump to completion.
	require.Len(t, tracker.Points, 1)
	assert.Equal(t, int64(len(content)), tracker.Points[0].Transferred)
	assert.True(t, tracker.Done)
}

func TestUploadDetectsContentType(t *testing.T) {
	storage := &testutil.MockStorageClient{}
	var metadataBody string
	client := newDirectClient(t, storage, metadataOK(t, &metadataBody))

	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	_, err := client.Upload(context.Background(), attachtypes.UploadRequest{
		Name: "photo.png",
		Body: bytes.NewReader(pngHeader),
	})

	require.NoError(t, err)
	require.Len(t, storage.PutObjectCalls, 1)
	assert.Equal(t, "image/png", aws.ToString(storage.PutObjectCalls[0].ContentType))
}

func TestUploadValidationFailure(t *testing.T) {
	storage := &testutil.MockStorageClient{}
	client := newDirectClient(t, storage, func(http.ResponseWriter, *http.Request) {
		t.Fatal("backend must not be called for an invalid file")
	})

	tracker := &testutil.MockProgressTracker{}
	_, err := client.Upload(context.Background(), attachtypes.UploadRequest{
		Name:        "malware.exe",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("x")),
	}, WithProgress(tracker))

	require.Error(t, err)
	assert.True(t, attacherrors.IsValidation(err))
	assert.Empty(t, storage.PutObjectCalls)
	assert.Error(t, tracker.Failed)
}

func TestUploadNilBody(t *testing.T) {
	client := newDirectClient(t, &testutil.MockStorageClient{}, func(http.ResponseWriter, *http.Request) {})

	_, err := client.Upload(context.Background(), attachtypes.UploadRequest{Name: "photo.png"})

	require.Error(t, err)
	assert.True(t, attacherrors.IsValidation(err))
}

func TestUploadOrphanedObjectSurfacesKey(t *testing.T) {
	storage := &testutil.MockStorageClient{}
	client := newDirectClient(t, storage, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Upload(context.Background(), attachtypes.UploadRequest{
		Name:        "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("content")),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, attacherrors.ErrMetadataPersist)

	// The bytes were stored; the error carries the orphaned key.
	require.Len(t, storage.PutObjectCalls, 1)
	assert.Contains(t, err.Error(), aws.ToString(storage.PutObjectCalls[0].Key))
}

func TestUploadProxied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/files/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "photo.png", header.Filename)
		_, _ = w.Write([]byte(`{"success":true,"data":{"file":{"_id":"665f2","s3Key":"uploads/images/2-b.png","url":"https://cdn.example.com/uploads/images/2-b.png"}}}`))
	}))
	t.Cleanup(server.Close)

	client, err := New(
		WithAPIBaseURL(server.URL),
		WithTokenSource(&testutil.MockTokenSource{}),
		WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	tracker := &testutil.MockProgressTracker{}
	result, err := client.Upload(context.Background(), attachtypes.UploadRequest{
		Name:        "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("file content")),
	}, WithProgress(tracker))

	require.NoError(t, err)
	assert.Equal(t, "Image", result.Class)
	assert.Equal(t, "665f2", result.Record.ID)
	assert.Equal(t, "uploads/images/2-b.png", result.Record.Key)

	// Proxied path reports byte-level progress as the form body is sent.
	assert.NotEmpty(t, tracker.Points)
	assert.True(t, tracker.Done)
}

func TestUploadFile(t *testing.T) {
	memfs := billy.NewInMemoryFS()
	require.NoError(t, memfs.WriteFile("/files/photo.png", []byte("file content"), 0o644))

	storage := &testutil.MockStorageClient{}
	var metadataBody string
	client := newDirectClient(t, storage, metadataOK(t, &metadataBody), WithFilesystem(memfs))

	result, err := client.UploadFile(context.Background(), "/files/photo.png")

	require.NoError(t, err)
	assert.Equal(t, "photo.png", result.Record.Name)
	assert.Equal(t, int64(len("file content")), result.Record.Size)
	require.Len(t, storage.PutObjectCalls, 1)
}

func TestUploadFileMissing(t *testing.T) {
	client := newDirectClient(t, &testutil.MockStorageClient{},
		func(http.ResponseWriter, *http.Request) {},
		WithFilesystem(billy.NewInMemoryFS()))

	_, err := client.UploadFile(context.Background(), "/no/such/file.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, attacherrors.ErrInvalidInput)
}

func TestUploadWithRetryRecovers(t *testing.T) {
	var attempts int
	storage := &testutil.MockStorageClient{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			attempts++
			if attempts < 3 {
				return nil, io.ErrUnexpectedEOF
			}
			return &s3.PutObjectOutput{}, nil
		},
	}
	var metadataBody string
	client := newDirectClient(t, storage, metadataOK(t, &metadataBody),
		WithRetryPolicy(3, time.Millisecond))

	result, err := client.UploadWithRetry(context.Background(), attachtypes.UploadRequest{
		Name:        "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("file content")),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "665f1", result.Record.ID)
}

func TestUploadWithRetryExhausts(t *testing.T) {
	storage := &testutil.MockStorageClient{
		PutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			return nil, io.ErrUnexpectedEOF
		},
	}
	client := newDirectClient(t, storage, func(http.ResponseWriter, *http.Request) {},
		WithRetryPolicy(3, time.Millisecond))

	_, err := client.UploadWithRetry(context.Background(), attachtypes.UploadRequest{
		Name:        "photo.png",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("file content")),
	})

	require.Error(t, err)
	assert.True(t, attacherrors.IsRetryExhausted(err))
	assert.Len(t, storage.PutObjectCalls, 3)
}

func TestUploadWithRetrySkipsTerminalFailures(t *testing.T) {
	storage := &testutil.MockStorageClient{}
	client := newDirectClient(t, storage, func(http.ResponseWriter, *http.Request) {},
		WithRetryPolicy(3, time.Millisecond))

	_, err := client.UploadWithRetry(context.Background(), attachtypes.UploadRequest{
		Name:        "malware.exe",
		ContentType: "image/png",
		Body:        bytes.NewReader([]byte("x")),
	})

	require.Error(t, err)
	assert.True(t, attacherrors.IsValidation(err))
	assert.Empty(t, storage.PutObjectCalls)
}

func TestCancelAbortsUpload(t *testing.T) {
	started := make(chan struct{})
	storage := &testutil.MockStorageClient{
		PutObjectFunc: func(ctx context.Context, _ *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	client := newDirectClient(t, storage, func(http.ResponseWriter, *http.Request) {})

	ticket := client.NewTicket()
	done := make(chan error, 1)
	go func() {
		_, err := client.Upload(context.Background(), attachtypes.UploadRequest{
			Name:        "photo.png",
			ContentType: "image/png",
			Body:        bytes.NewReader([]byte("content")),
		}, WithTicket(ticket))
		done <- err
	}()

	<-started
	assert.True(t, client.Cancel(ticket))

	err := <-done
	require.Error(t, err)
	assert.True(t, attacherrors.IsCancelled(err))

	// The ticket is released once the upload returns.
	assert.False(t, client.Cancel(ticket))
}
