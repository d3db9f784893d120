// Package backend talks to the chat backend's file endpoints: metadata
// persistence after a direct storage transfer, and the legacy proxied upload
// path for deployments without a bucket.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/errors"
)

const (
	metadataPath = "/api/files/metadata"
	uploadPath   = "/api/files/upload"
)

// Client is an authenticated HTTP client for the backend's file endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     attachtypes.TokenSource
}

// New creates a backend client. baseURL is the API root without a trailing
// slash; tokens supplies session credentials for every request.
func New(httpClient *http.Client, baseURL string, tokens attachtypes.TokenSource) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// Metadata is the persistence request body. Field names follow the backend's
// wire contract.
type Metadata struct {
	S3Key        string `json:"s3Key"`
	URL          string `json:"url"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	ETag         string `json:"etag,omitempty"`
}

// apiEnvelope is the backend's common response shape.
type apiEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *struct {
		File fileEnvelope `json:"file"`
	} `json:"data,omitempty"`
}

type fileEnvelope struct {
	ID           string `json:"_id"`
	S3Key        string `json:"s3Key,omitempty"`
	URL          string `json:"url,omitempty"`
	OriginalName string `json:"originalname,omitempty"`
	MimeType     string `json:"mimetype,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ETag         string `json:"etag,omitempty"`
}

// PersistMetadata records the file attributes with the backend after the
// bytes are already in the object store.
//
// A 401 response triggers exactly one token refresh followed by one retry of
// the same POST. If the refresh fails, or the retried call fails again, the
// session-expired failure is surfaced and no further attempt is made.
func (c *Client) PersistMetadata(ctx context.Context, md Metadata) (*attachtypes.FileRecord, error) {
	body, err := json.Marshal(md)
	if err != nil {
		return nil, errors.NewError("persist", err).WithKey(md.S3Key)
	}

	env, status, err := c.postJSON(ctx, c.baseURL+metadataPath, body)
	if err != nil {
		return nil, errors.NewError("persist", fmt.Errorf("%w: %w", errors.ErrMetadataPersist, err)).
			WithKey(md.S3Key)
	}

	if status == http.StatusUnauthorized {
		if rerr := c.tokens.Refresh(ctx); rerr != nil {
			return nil, errors.NewError("persist", errors.ErrAuthExpired).
				WithKey(md.S3Key).
				WithMessage("token refresh failed")
		}
		env, status, err = c.postJSON(ctx, c.baseURL+metadataPath, body)
		if err != nil {
			return nil, errors.NewError("persist", fmt.Errorf("%w: %w", errors.ErrMetadataPersist, err)).
				WithKey(md.S3Key)
		}
		if status == http.StatusUnauthorized {
			return nil, errors.NewError("persist", errors.ErrAuthExpired).WithKey(md.S3Key)
		}
	}

	if status < 200 || status > 299 {
		return nil, errors.NewError("persist", errors.ErrMetadataPersist).
			WithKey(md.S3Key).
			WithMessage(failureMessage(env, status))
	}
	if !env.Success {
		return nil, errors.NewError("persist", errors.ErrMetadataPersist).
			WithKey(md.S3Key).
			WithMessage(failureMessage(env, status))
	}

	return recordFromEnvelope(env, md), nil
}

// UploadMultipart submits the file through the legacy backend upload
// endpoint as a multipart form with field "file". Progress is reported from
// the bytes-transferred to bytes-total ratio as the request body is read.
func (c *Client) UploadMultipart(
	ctx context.Context,
	filename, contentType string,
	data []byte,
	tracker attachtypes.ProgressTracker,
) (*attachtypes.FileRecord, error) {
	body, formContentType, err := encodeForm(filename, contentType, data)
	if err != nil {
		return nil, errors.NewError("proxyUpload", err)
	}

	var reader io.Reader = bytes.NewReader(body)
	if tracker != nil {
		reader = &progressReader{
			reader:  reader,
			tracker: tracker,
			total:   int64(len(body)),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, reader)
	if err != nil {
		return nil, errors.NewError("proxyUpload", err)
	}
	req.Header.Set("Content-Type", formContentType)
	req.ContentLength = int64(len(body))
	if err := c.setAuthHeaders(req); err != nil {
		return nil, errors.NewError("proxyUpload", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		werr := wrapTransferError(err)
		if tracker != nil {
			tracker.Error(werr)
		}
		return nil, errors.NewError("proxyUpload", werr)
	}
	defer resp.Body.Close()

	env, derr := decodeEnvelope(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		werr := errors.NewError("proxyUpload", errors.ErrStorageTransfer).
			WithMessage(failureMessage(env, resp.StatusCode))
		if tracker != nil {
			tracker.Error(werr)
		}
		return nil, werr
	}
	if derr != nil {
		return nil, errors.NewError("proxyUpload", fmt.Errorf("%w: %w", errors.ErrStorageTransfer, derr))
	}
	if !env.Success {
		return nil, errors.NewError("proxyUpload", errors.ErrStorageTransfer).
			WithMessage(failureMessage(env, resp.StatusCode))
	}

	if tracker != nil {
		tracker.Complete()
	}

	md := Metadata{OriginalName: filename, MimeType: contentType, Size: int64(len(data))}
	return recordFromEnvelope(env, md), nil
}

// postJSON sends one authenticated JSON POST and decodes the envelope. The
// envelope may be nil when the response body is not valid JSON.
func (c *Client) postJSON(ctx context.Context, url string, body []byte) (*apiEnvelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.setAuthHeaders(req); err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, wrapTransportError(err)
	}
	defer resp.Body.Close()

	env, _ := decodeEnvelope(resp.Body)
	return env, resp.StatusCode, nil
}

func (c *Client) setAuthHeaders(req *http.Request) error {
	token, sessionID, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrAuthExpired, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}
	return nil
}

func decodeEnvelope(r io.Reader) (*apiEnvelope, error) {
	var env apiEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

func recordFromEnvelope(env *apiEnvelope, md Metadata) *attachtypes.FileRecord {
	rec := &attachtypes.FileRecord{
		Key:         md.S3Key,
		Name:        md.OriginalName,
		ContentType: md.MimeType,
		Size:        md.Size,
		URL:         md.URL,
		ETag:        md.ETag,
	}
	if env != nil && env.Data != nil {
		file := env.Data.File
		rec.ID = file.ID
		// The backend's view wins where it reports a value.
		if file.S3Key != "" {
			rec.Key = file.S3Key
		}
		if file.URL != "" {
			rec.URL = file.URL
		}
		if file.OriginalName != "" {
			rec.Name = file.OriginalName
		}
		if file.MimeType != "" {
			rec.ContentType = file.MimeType
		}
		if file.Size > 0 {
			rec.Size = file.Size
		}
		if file.ETag != "" {
			rec.ETag = file.ETag
		}
	}
	return rec
}

func failureMessage(env *apiEnvelope, status int) string {
	if env != nil && env.Message != "" {
		return env.Message
	}
	return fmt.Sprintf("backend returned status %d", status)
}

// wrapTransportError classifies cancellation on requests whose caller adds
// its own sentinel afterwards.
func wrapTransportError(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", errors.ErrCancelled, err)
	}
	return err
}

// wrapTransferError ties a transport failure on the proxied upload to the
// transfer sentinel, so transient network errors stay retryable.
func wrapTransferError(err error) error {
	if stderrors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", errors.ErrCancelled, err)
	}
	return fmt.Errorf("%w: %w", errors.ErrStorageTransfer, err)
}
