// Package keygen constructs storage keys and retrieval URLs.
//
// Keys combine a millisecond timestamp with a random UUID, which makes
// collisions between two uploads of the same filename within the same
// millisecond practically impossible without any coordination.
package keygen

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prefix is the root of all attachment keys in the object store.
const Prefix = "uploads"

// Key builds a storage key of the form
// uploads/<folder>/<unix-millis>-<uuid><ext>, with the extension lowercased.
func Key(folder, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s/%d-%s%s", Prefix, folder, now.UnixMilli(), uuid.NewString(), ext)
}

// URLResolver turns storage keys into retrieval URLs. The indirection lets
// the retrieval path (CDN vs direct bucket endpoint) change without touching
// stored keys.
type URLResolver struct {
	// CDNDomain, when set, takes precedence over the bucket URL
	CDNDomain string

	// BucketURL is the base URL of the bucket endpoint
	BucketURL string
}

// Resolve returns the retrieval URL for a key. It returns an empty string if
// neither a CDN domain nor a bucket URL is configured.
func (r URLResolver) Resolve(key string) string {
	key = strings.TrimPrefix(key, "/")
	if r.CDNDomain != "" {
		return "https://" + r.CDNDomain + "/" + key
	}
	if r.BucketURL != "" {
		return strings.TrimSuffix(r.BucketURL, "/") + "/" + key
	}
	return ""
}

// BucketURL returns the default virtual-hosted endpoint URL for a bucket.
func BucketURL(bucket, region string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}
