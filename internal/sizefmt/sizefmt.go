// Package sizefmt renders byte counts in the human-readable form the chat UI
// displays next to attachments.
package sizefmt

import (
	"math"
	"strconv"
)

var units = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// Format renders n as a human-readable size using 1024-based units.
// Values are rounded to at most two decimal places and trailing zeros are
// dropped, so 1024 renders as "1 KB" and 1536 as "1.5 KB".
func Format(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}

	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}

	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}
