package query

import (
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
)

// Key identifies a cache entry. Params is a canonical encoding of the read,
// so equal reads always produce equal keys.
type Key struct {
	Kind   models.Kind
	Params string
}

func (k Key) String() string {
	if k.Params == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + "?" + k.Params
}

// ListKey is the key of a collection read, optionally filtered.
func ListKey(kind models.Kind, filter models.Filter) Key {
	return Key{Kind: kind, Params: "list&" + filter.Canonical()}
}

// RecordKey is the key of a single-record read.
func RecordKey(kind models.Kind, id models.ID) Key {
	return Key{Kind: kind, Params: "id=" + id.String()}
}
