package pdr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

var nonWordRun = regexp.MustCompile(`[^A-Za-z0-9_/]+`)

// SanitizeName replaces runs of characters outside [A-Za-z0-9_/] with a
// single underscore, then discards an all-underscore result (spec §4.3
// "Names are sanitized...", §8 property 9).
func SanitizeName(raw string) (string, bool) {
	sanitized := nonWordRun.ReplaceAllString(raw, "_")
	if sanitized == "" || strings.Trim(sanitized, "_") == "" {
		return "", false
	}
	return sanitized, true
}

// decodeUTF16BEName decodes a big-endian UTF-16 byte string (spec §4.3:
// "UTF-16BE name strings").
func decodeUTF16BEName(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}

// expandSharedNames generates sharedNameCount+1 entries by appending
// "_<n>" to a base sanitized name (spec §4.3: "For shared names,
// sharedNameCount+1 entries are generated").
func expandSharedNames(base string, sharedNameCount uint8) []string {
	out := make([]string, 0, int(sharedNameCount)+1)
	for n := 0; n <= int(sharedNameCount); n++ {
		if n == 0 {
			out = append(out, base)
			continue
		}
		out = append(out, base+"_"+strconv.Itoa(n))
	}
	return out
}
