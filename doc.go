// Package attach coordinates chat-attachment transfers.
//
// The Client validates a candidate file against a type/size policy, uploads
// it either directly to S3-compatible object storage or through the legacy
// backend endpoint, persists the resulting metadata with the backend, and
// exposes retry, cancel, download, and URL-resolution operations.
//
// Which transfer path is used is decided once, when the client is built: a
// configured bucket selects the direct-storage path, otherwise every upload
// is proxied through the backend's multipart endpoint.
package attach
