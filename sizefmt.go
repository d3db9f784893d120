package attach

import "github.com/chatforge/attach/internal/sizefmt"

// FormatFileSize renders a byte count as a human-readable string, e.g.
// "0 Bytes", "1 KB", "1.5 MB". Values are rounded to two decimal places and
// trailing zeros are dropped.
func FormatFileSize(n int64) string {
	return sizefmt.Format(n)
}
