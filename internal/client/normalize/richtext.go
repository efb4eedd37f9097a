package normalize

import (
	"strings"

	"github.com/buger/jsonparser"
)

// RichText reduces a prose field to plain text. Input may be a string, an
// array of block nodes or a single block node. Leaf texts are concatenated
// in document order; sibling blocks are separated by a single space.
func RichText(raw []byte) string {
	return richText(get(raw))
}

func richText(v value) string {
	switch v.typ {
	case jsonparser.String:
		return strings.TrimSpace(unescape(v.raw))
	case jsonparser.Number, jsonparser.Boolean:
		return string(v.raw)
	case jsonparser.Array:
		return strings.TrimSpace(children(v))
	case jsonparser.Object:
		s, _ := node(v.raw)
		return strings.TrimSpace(s)
	}
	return ""
}

// node reduces one tree node. Inline nodes (text leaves and links) report
// inline=true so that their parent concatenates them without separators.
func node(raw []byte) (text string, inline bool) {
	if t := get(raw, "text"); t.typ == jsonparser.String {
		return unescape(t.raw), true
	}
	kind, _ := get(raw, "type").scalar()
	inline = kind == "link" || kind == "text"
	return children(get(raw, "children")), inline
}

// children joins the reduced child nodes: runs of inline nodes are
// concatenated, block nodes are separated from their neighbours by a space.
func children(arr value) string {
	var (
		segments []string
		run      strings.Builder
	)
	flush := func() {
		if strings.TrimSpace(run.String()) != "" {
			segments = append(segments, run.String())
		}
		run.Reset()
	}

	arr.each(func(v value) {
		switch v.typ {
		case jsonparser.Object:
			s, inline := node(v.raw)
			if inline {
				run.WriteString(s)
				return
			}
			flush()
			if strings.TrimSpace(s) != "" {
				segments = append(segments, strings.TrimSpace(s))
			}
		case jsonparser.String:
			run.WriteString(unescape(v.raw))
		}
	})
	flush()

	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}
	return strings.Join(segments, " ")
}
