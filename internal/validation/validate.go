// Package validation provides the upload policy checks.
// A candidate file is matched against the configured file classes by MIME
// type first and extension second, then checked against the global and
// per-class size caps and the extension set of the matched class.
//
// The extension check after a MIME match guards against MIME-type spoofing:
// a declared "image/png" with a ".exe" extension is rejected even though the
// MIME type alone would have matched the image class.
package validation

import (
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/chatforge/attach/attachtypes"
	"github.com/chatforge/attach/errors"
	"github.com/chatforge/attach/internal/sizefmt"
)

// DefaultContentType is used when content type detection fails.
const DefaultContentType = "application/octet-stream"

// Validate checks a candidate file descriptor against the upload policy and
// returns the matched class. Classes are tried in configuration order and the
// first match wins.
func Validate(
	name, contentType string,
	size int64,
	classes []attachtypes.FileClass,
	maxBytes int64,
) (*attachtypes.FileClass, error) {
	if name == "" {
		return nil, errors.NewError("validate", errors.ErrValidation).
			WithMessage("no file provided")
	}
	if size < 0 {
		return nil, errors.NewError("validate", errors.ErrInvalidInput).
			WithMessage("negative file size")
	}
	if maxBytes > 0 && size > maxBytes {
		return nil, errors.NewError("validate", errors.ErrValidation).
			WithMessage("file exceeds the upload limit of " + sizefmt.Format(maxBytes))
	}

	ext := strings.ToLower(filepath.Ext(name))
	mediaType := normalizeMediaType(contentType)

	// MIME match first; the extension must then belong to the same class.
	for i := range classes {
		class := &classes[i]
		if !slices.Contains(class.MIMETypes, mediaType) {
			continue
		}
		if !slices.Contains(class.Extensions, ext) {
			return nil, errors.NewError("validate", errors.ErrValidation).
				WithMessage("extension " + displayExt(ext) + " is not valid for " + class.Name + " files")
		}
		return checkClassSize(class, size)
	}

	// Extension fallback when no class claims the declared MIME type.
	for i := range classes {
		class := &classes[i]
		if slices.Contains(class.Extensions, ext) {
			return checkClassSize(class, size)
		}
	}

	return nil, errors.NewError("validate", errors.ErrValidation).
		WithMessage("unsupported file type " + mediaType + " (" + displayExt(ext) + ")")
}

// DetectContentType determines the content type of a file from its bytes,
// falling back to extension-based lookup and finally DefaultContentType.
func DetectContentType(data []byte, name string) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && mt.String() != DefaultContentType {
			return normalizeMediaType(mt.String())
		}
	}

	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return normalizeMediaType(byExt)
		}
	}

	return DefaultContentType
}

func checkClassSize(class *attachtypes.FileClass, size int64) (*attachtypes.FileClass, error) {
	if class.MaxBytes > 0 && size > class.MaxBytes {
		return nil, errors.NewError("validate", errors.ErrValidation).
			WithMessage(class.Name + " files cannot exceed " + sizefmt.Format(class.MaxBytes))
	}
	return class, nil
}

// normalizeMediaType lowercases a MIME type and strips its parameters, so
// "Text/Plain; charset=utf-8" compares equal to "text/plain".
func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
}

func displayExt(ext string) string {
	if ext == "" {
		return "no extension"
	}
	return ext
}
