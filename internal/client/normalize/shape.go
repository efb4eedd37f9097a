package normalize

import "github.com/buger/jsonparser"

// A shape locates an attribute inside a record payload.
type shape struct {
	name   string
	lookup func(record []byte, key string) value
}

// shapes is the lookup order for every attribute: the nested
// {"attributes": {...}} layout first, then the flattened one.
var shapes = []shape{
	{name: "nested", lookup: func(rec []byte, key string) value { return get(rec, "attributes", key) }},
	{name: "flat", lookup: func(rec []byte, key string) value { return get(rec, key) }},
}

// record is one CMS entry in either layout.
type record struct {
	raw []byte
}

// field returns the first present value for any of the aliases, trying every
// alias in one shape before moving on to the next shape.
func (r record) field(aliases ...string) value {
	for _, s := range shapes {
		for _, alias := range aliases {
			if v := s.lookup(r.raw, alias); v.present() {
				return v
			}
		}
	}
	return missing
}

// relation unwraps a relation value. Accepted forms are a direct object,
// {"data": object}, {"data": [object, ...]} and a bare array, in which case
// the first element wins. {"data": null} and absent values yield false.
func relation(v value) (record, bool) {
	switch v.typ {
	case jsonparser.Object:
		if d := get(v.raw, "data"); d.typ != jsonparser.NotExist {
			return relation(d)
		}
		return record{raw: v.raw}, true
	case jsonparser.Array:
		return relation(v.first())
	}
	return record{}, false
}

// Records extracts the entries of a collection payload. It accepts
// {"data": [...]}, a bare array, {"data": {...}} and a bare record.
func Records(payload []byte) [][]byte {
	top := get(payload)
	switch top.typ {
	case jsonparser.Array:
		return objects(top)
	case jsonparser.Object:
		d := get(top.raw, "data")
		switch d.typ {
		case jsonparser.Array:
			return objects(d)
		case jsonparser.Object:
			return [][]byte{d.raw}
		case jsonparser.NotExist:
			return [][]byte{top.raw}
		}
	}
	return [][]byte{}
}

// Single extracts the entry of a single-record payload, {"data": {...}} or
// a bare record.
func Single(payload []byte) ([]byte, bool) {
	top := get(payload)
	if top.typ != jsonparser.Object {
		return nil, false
	}
	d := get(top.raw, "data")
	switch d.typ {
	case jsonparser.Object:
		return d.raw, true
	case jsonparser.Array:
		if f := d.first(); f.typ == jsonparser.Object {
			return f.raw, true
		}
		return nil, false
	case jsonparser.NotExist:
		return top.raw, true
	}
	return nil, false
}

func objects(arr value) [][]byte {
	out := [][]byte{}
	arr.each(func(v value) {
		if v.typ == jsonparser.Object {
			out = append(out, v.raw)
		}
	})
	return out
}
