// Package normalize converts raw scraper records into fully typed venue
// records. Coercion failures never abort: each one falls back to a default
// and is surfaced as a warning carrying the record's name.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/heritagepubs/pubsync/internal/model"
)

// Warning describes a single field coercion that could not be performed.
type Warning struct {
	Record string
	Field  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Record, w.Field, w.Reason)
}

// tierPrefixes maps the legacy scraper's free-text star labels to tiers.
// Labels arrive as "Three star - ..." so matching is on prefix, ordered.
var tierPrefixes = []struct {
	prefix string
	tier   int
}{
	{"three star", 3},
	{"two star", 2},
	{"one star", 1},
	{"zero star", 0},
}

// Record normalizes one raw scraper record. It always succeeds; warnings
// report any fields that fell back to defaults.
func Record(raw model.RawRecord) (model.Venue, []Warning) {
	var warns []Warning
	warn := func(field, reason string) {
		warns = append(warns, Warning{Record: raw.Name, Field: field, Reason: reason})
	}

	v := model.Venue{
		Name:        strings.TrimSpace(raw.Name),
		Address:     Address(raw.Address),
		Description: strings.TrimSpace(raw.Description),
		ListedGrade: strings.TrimSpace(raw.Listed),
		URL:         strings.TrimSpace(raw.URL),
	}

	tier, ok := Tier(raw.Stars)
	if !ok {
		warn("inventory_stars", fmt.Sprintf("unrecognized value %v, defaulting to 0", raw.Stars))
	}
	v.Tier = tier

	v.Open = Open(raw.Open, raw.Status)

	if lat, ok := Coord(raw.Latitude); ok {
		v.Latitude = lat
	} else {
		warn("latitude", fmt.Sprintf("unparsable value %v", raw.Latitude))
	}
	if lng, ok := Coord(raw.Longitude); ok {
		v.Longitude = lng
	} else {
		warn("longitude", fmt.Sprintf("unparsable value %v", raw.Longitude))
	}

	v.ExternalID = strings.TrimSpace(raw.ExternalID)
	if v.ExternalID == "" {
		v.ExternalID = ExternalIDFromURL(v.URL)
	}

	return v, warns
}

// Address canonicalizes an address for use as an exact-match key: NFC
// normalization plus surrounding-whitespace trim. Case is preserved, the
// exact-address tier is case-sensitive.
func Address(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Tier coerces an inventory-stars value to a tier in 0..3. Integers (and
// JSON float64s) in range pass through; strings match the legacy prefix
// table case-insensitively. Anything else fails open to 0 with ok=false.
func Tier(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case int:
		if t >= 0 && t <= model.TierTop {
			return t, true
		}
	case float64:
		n := int(t)
		if float64(n) == t && n >= 0 && n <= model.TierTop {
			return n, true
		}
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return 0, true
		}
		for _, p := range tierPrefixes {
			if strings.HasPrefix(s, p.prefix) {
				return p.tier, true
			}
		}
	}
	return 0, false
}

// Open derives the open/closed flag. An explicit boolean wins; otherwise a
// status string containing "closed" (any case) means closed. Absent values
// default to open.
func Open(open, status any) bool {
	if b, ok := open.(bool); ok {
		return b
	}
	if s, ok := open.(string); ok && s != "" {
		return !containsClosed(s)
	}
	if s, ok := status.(string); ok {
		return !containsClosed(s)
	}
	return true
}

func containsClosed(s string) bool {
	return strings.Contains(strings.ToLower(s), "closed")
}

// Coord parses a latitude/longitude value that may arrive as a float, an
// int, a numeric string, empty, or absent. ok=false only for values that
// were present but unparsable.
func Coord(v any) (*float64, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case float64:
		return &t, true
	case int:
		f := float64(t)
		return &f, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return &f, true
	}
	return nil, false
}

// ExternalIDFromURL pulls the numeric source identifier off the end of a
// detail-page URL. The last path segment must be a positive integer token;
// hyphenated slugs like "the-crown-10199" yield their final numeric token.
// Returns "" when no numeric token is present.
func ExternalIDFromURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return ""
	}
	seg := url
	if i := strings.LastIndex(seg, "/"); i >= 0 {
		seg = seg[i+1:]
	}
	// Strip query fragments left behind by the map links.
	if i := strings.IndexAny(seg, "?#"); i >= 0 {
		seg = seg[:i]
	}
	if isPositiveInt(seg) {
		return seg
	}
	if i := strings.LastIndex(seg, "-"); i >= 0 {
		if tail := seg[i+1:]; isPositiveInt(tail) {
			return tail
		}
	}
	return ""
}

func isPositiveInt(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return strings.TrimLeft(s, "0") != ""
}
