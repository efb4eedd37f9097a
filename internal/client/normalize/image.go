package normalize

import (
	"strings"

	"github.com/buger/jsonparser"
)

// Placeholder images used when a record has no usable media.
const (
	AircraftPlaceholder    = "https://images.unsplash.com/photo-1482938289607-e9573fc25ebb?auto=format&fit=crop&q=80&w=1500"
	InstructorPlaceholder  = "https://images.unsplash.com/photo-1580489944761-15a19d654956?auto=format&fit=crop&q=80&w=1000"
	TestimonialPlaceholder = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?auto=format&fit=crop&q=80&w=400"
)

// ResolveURL qualifies a relative asset path against base. Absolute URLs
// (http, https, protocol-relative and data) are returned unchanged.
func ResolveURL(base, u string) string {
	u = strings.TrimSpace(u)
	if u == "" || isAbsolute(u) || base == "" {
		return u
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(u, "/")
}

func isAbsolute(u string) bool {
	for _, prefix := range []string{"http://", "https://", "//", "data:"} {
		if strings.HasPrefix(strings.ToLower(u), prefix) {
			return true
		}
	}
	return false
}

// mediaURL finds the url of a media field: a plain string, a media object,
// or any relation wrapping of one.
func mediaURL(v value) (string, bool) {
	if v.typ == jsonparser.String {
		return v.scalar()
	}
	rec, ok := relation(v)
	if !ok {
		return "", false
	}
	return rec.field("url").scalar()
}
