// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package fingerprint

import (
	"strconv"
	"unicode/utf16"
)

// Hash returns the base-36 token of the 31-multiplier string hash of s.
//
// For each UTF-16 code unit c the running value becomes hash*31 + c, with
// 32-bit two's-complement wraparound. The token is the absolute value in
// base 36. This is an identification hash with expected collisions, not a
// security primitive.
func Hash(s string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
