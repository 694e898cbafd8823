package release

import (
	"strconv"
	"strings"
)

// Version is a loosely-parsed semantic version. Pre is the pre-release
// suffix ("beta.3" in "1.2.0-beta.3"); empty means a final release.
type Version struct {
	Major int
	Minor int
	Patch int
	Pre   string
}

// ParseVersion parses a version string leniently: a leading "v" and build
// metadata are ignored, missing components default to zero.
func ParseVersion(s string) Version {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")

	if i := strings.Index(s, "+"); i >= 0 {
		s = s[:i]
	}

	var v Version
	if i := strings.Index(s, "-"); i >= 0 {
		v.Pre = s[i+1:]
		s = s[:i]
	}

	segments := strings.Split(s, ".")
	parts := [3]*int{&v.Major, &v.Minor, &v.Patch}
	for i := 0; i < 3 && i < len(segments); i++ {
		n, err := strconv.Atoi(segments[i])
		if err != nil {
			break
		}
		*parts[i] = n
	}
	return v
}

// String reassembles the version.
func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	return s
}

// Compare returns -1, 0, or 1. Numeric components compare component-wise; at
// equal numeric version a final release outranks any pre-release, and two
// pre-releases compare lexically.
func Compare(a, b Version) int {
	for _, pair := range [][2]int{{a.Major, b.Major}, {a.Minor, b.Minor}, {a.Patch, b.Patch}} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}

	switch {
	case a.Pre == b.Pre:
		return 0
	case a.Pre == "":
		return 1
	case b.Pre == "":
		return -1
	case a.Pre < b.Pre:
		return -1
	default:
		return 1
	}
}
