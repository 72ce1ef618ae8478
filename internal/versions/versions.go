// Package versions turns upstream tags into PEP 440 release versions and
// decides when the published package is behind.
package versions

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ErrNoSemver is returned when a tag carries no X.Y.Z triple.
var ErrNoSemver = errors.New("no semver in tag")

// PostTimestampLayout formats post-release stamps as YYYYmmddHHMMSS.
const PostTimestampLayout = "20060102150405"

const postMarker = ".post"

var semverRe = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// Version is a numeric major.minor.patch triple.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// canonical is the x/mod/semver spelling of v.
func (v Version) canonical() string {
	return "v" + v.String()
}

// ParseSemver finds the first X.Y.Z in s. Prefixes such as "regorus-v" and
// suffixes such as ".post2024..." are ignored.
func ParseSemver(s string) (Version, bool) {
	m := semverRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, false
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, false
	}
	if v.Minor, err = strconv.Atoi(m[2]); err != nil {
		return Version{}, false
	}
	if v.Patch, err = strconv.Atoi(m[3]); err != nil {
		return Version{}, false
	}
	return v, true
}

// TagToVersion maps "regorus-v0.05.0" to "0.5.0".
func TagToVersion(tag string) (string, error) {
	v, ok := ParseSemver(tag)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoSemver, strings.TrimSpace(tag))
	}
	return v.String(), nil
}

// IsNewer reports whether tag is strictly ahead of the published version.
// An unparseable tag is never newer; an unparseable published version always
// loses.
func IsNewer(tag, published string) bool {
	tv, ok := ParseSemver(tag)
	if !ok {
		return false
	}
	pv, ok := ParseSemver(published)
	if !ok {
		return true
	}
	return semver.Compare(tv.canonical(), pv.canonical()) > 0
}

// NeedsBuild reports whether tag should be built given the latest published
// version. An empty published version means nothing was released yet.
func NeedsBuild(tag, published string) bool {
	if published == "" {
		return true
	}
	return IsNewer(tag, published)
}

// Base strips a post-release suffix: "0.5.0.post20240101000000" -> "0.5.0".
func Base(version string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(version), postMarker)
	return base
}

// IsPostRelease reports whether version carries a .postN suffix.
func IsPostRelease(version string) bool {
	return strings.Contains(version, postMarker)
}

// PostTimestamp formats t in UTC as a post-release stamp.
func PostTimestamp(t time.Time) string {
	return t.UTC().Format(PostTimestampLayout)
}

// EffectiveVersion picks the version to publish for upstream.
//
// Without force it is upstream itself. A forced build gets a post-release
// suffix: fixedPostTS when given (so every platform of one release agrees),
// otherwise an existing post-release of the same base is reused, otherwise
// now is stamped.
func EffectiveVersion(upstream string, force bool, fixedPostTS, existing string, now time.Time) string {
	if !force {
		return upstream
	}
	if fixedPostTS != "" {
		return upstream + postMarker + fixedPostTS
	}
	if existing != "" && IsPostRelease(existing) && Base(existing) == upstream {
		return existing
	}
	return upstream + postMarker + PostTimestamp(now)
}

// ValidPostTimestamp reports whether ts has the YYYYmmddHHMMSS shape.
func ValidPostTimestamp(ts string) bool {
	_, err := time.Parse(PostTimestampLayout, ts)
	return err == nil
}

// SortTagsDesc keeps only tags with a semver triple and orders them newest
// first. Tags with equal versions keep their input order.
func SortTagsDesc(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := ParseSemver(t); ok {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b string) int {
		av, _ := ParseSemver(a)
		bv, _ := ParseSemver(b)
		return semver.Compare(bv.canonical(), av.canonical())
	})
	return out
}
