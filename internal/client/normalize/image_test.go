package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	const base = "http://localhost:1337"
	tests := []struct {
		name string
		base string
		in   string
		want string
	}{
		{name: "relative", base: base, in: "/uploads/c172.jpg", want: "http://localhost:1337/uploads/c172.jpg"},
		{name: "relative without slash", base: base + "/", in: "uploads/c172.jpg", want: "http://localhost:1337/uploads/c172.jpg"},
		{name: "https", base: base, in: "https://cdn.example.com/a.jpg", want: "https://cdn.example.com/a.jpg"},
		{name: "http", base: base, in: "http://cdn.example.com/a.jpg", want: "http://cdn.example.com/a.jpg"},
		{name: "protocol relative", base: base, in: "//cdn.example.com/a.jpg", want: "//cdn.example.com/a.jpg"},
		{name: "no base", base: "", in: "/uploads/a.jpg", want: "/uploads/a.jpg"},
		{name: "empty", base: base, in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.base, tt.in))
		})
	}
}

func TestMediaURL(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{name: "string", in: `"/uploads/a.jpg"`, want: "/uploads/a.jpg", wantOK: true},
		{name: "media object", in: `{"id":1,"url":"/uploads/a.jpg"}`, want: "/uploads/a.jpg", wantOK: true},
		{name: "wrapped media", in: `{"data":{"id":1,"attributes":{"url":"/uploads/a.jpg"}}}`, want: "/uploads/a.jpg", wantOK: true},
		{name: "media list", in: `[{"url":"/uploads/a.jpg"},{"url":"/uploads/b.jpg"}]`, want: "/uploads/a.jpg", wantOK: true},
		{name: "wrapped null", in: `{"data":null}`},
		{name: "object without url", in: `{"id":1}`},
		{name: "absent", in: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mediaURL(get([]byte(tt.in)))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
