// Package models defines content kinds, identifiers, filters and the stable
// view models handed to presentation code.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a content record.
type Kind string

const (
	KindAircraft    Kind = "aircraft"
	KindInstructor  Kind = "instructor"
	KindCourse      Kind = "course"
	KindTestimonial Kind = "testimonial"
)

var ErrUnknownKind = errors.New("unknown content kind")

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindAircraft, KindInstructor, KindCourse, KindTestimonial}

// ParseKind accepts the singular or plural form of a kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aircraft", "aircrafts":
		return KindAircraft, nil
	case "instructor", "instructors":
		return KindInstructor, nil
	case "course", "courses":
		return KindCourse, nil
	case "testimonial", "testimonials":
		return KindTestimonial, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Endpoint is the collection path segment of the kind on the CMS.
func (k Kind) Endpoint() string {
	switch k {
	case KindAircraft:
		return "aircrafts"
	case KindInstructor:
		return "instructors"
	case KindCourse:
		return "courses"
	case KindTestimonial:
		return "testimonials"
	}
	return string(k) + "s"
}

// Populate is the relation-expansion value sent with reads of the kind.
func (k Kind) Populate() string {
	switch k {
	case KindAircraft, KindInstructor:
		return "image"
	}
	return "*"
}

// ID identifies a record. The CMS keys records by an integer id, a string
// document id, or both; either form is carried as its string rendering.
type ID string

func NumericID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// IsNumeric reports whether the id is an integer id rather than a document id.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil
}

func (id ID) String() string {
	return string(id)
}

// Filter holds equality filters, field name to value.
type Filter map[string]string

var ErrIncorrectFilter = errors.New("filter item must be field=value")

// FilterFromArgs parses "field=value" items.
func FilterFromArgs(args []string) (Filter, error) {
	if len(args) == 0 {
		return nil, nil
	}
	f := make(Filter, len(args))
	for _, item := range args {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, ErrIncorrectFilter
		}
		f[parts[0]] = parts[1]
	}
	return f, nil
}

// Values renders the filter as CMS query parameters, filters[field][$eq]=value.
func (f Filter) Values() url.Values {
	v := url.Values{}
	for field, value := range f {
		v.Set("filters["+field+"][$eq]", value)
	}
	return v
}

// Canonical returns a stable encoding of the filter, independent of map order.
func (f Filter) Canonical() string {
	if len(f) == 0 {
		return ""
	}
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(field))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f[field]))
	}
	return b.String()
}
