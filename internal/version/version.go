// Package version compares and normalizes dotted numeric release versions
// such as "1.58.1.1". Tracker tags carry a "V." prefix that is stripped
// before a version is used as a record key.
package version

import (
	"strconv"
	"strings"
)

// TagPrefix marks a version tag on tracker work items.
const TagPrefix = "V."

// Normalize trims whitespace and the tag prefix (case-insensitive).
func Normalize(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= len(TagPrefix) && strings.EqualFold(v[:len(TagPrefix)], TagPrefix) {
		v = v[len(TagPrefix):]
	}
	return strings.TrimSpace(v)
}

// Tag returns the tracker tag for v, adding the prefix when missing.
func Tag(v string) string {
	return TagPrefix + Normalize(v)
}

// Valid reports whether v (after normalization) is a non-empty sequence
// of dot-separated decimal segments.
func Valid(v string) bool {
	v = Normalize(v)
	if v == "" {
		return false
	}
	for _, seg := range strings.Split(v, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// Compare orders two versions segment by segment. Missing trailing
// segments count as zero, so "1.0" and "1.0.0" are equal. Segments that
// are not numbers also count as zero.
func Compare(a, b string) int {
	as := segments(a)
	bs := segments(b)
	n := max(len(as), len(bs))
	for i := 0; i < n; i++ {
		x, y := at(as, i), at(bs, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// Equal reports whether a and b name the same version, e.g. "1.0" and
// "1.0.0" or "1.02" and "1.2".
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

// Canonical renders v with leading zeros and trailing zero segments
// dropped. Versions that are Equal have the same canonical form.
func Canonical(v string) string {
	segs := segments(v)
	for len(segs) > 1 && segs[len(segs)-1] == 0 {
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 {
		return "0"
	}
	parts := make([]string, len(segs))
	for i, n := range segs {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return strings.Join(parts, ".")
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

func segments(v string) []int64 {
	v = Normalize(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

func at(s []int64, i int) int64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}
