package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinSegments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "empty", in: "", want: "", ok: true},
		{name: "slashes trimmed", in: "/projects/velocity/", want: "projects/velocity", ok: true},
		{name: "query marker stays in segment", in: "report?injected=1", want: "report%3Finjected=1", ok: true},
		{name: "fragment stays in segment", in: "a#b", want: "a%23b", ok: true},
		{name: "space escaped", in: "team report", want: "team%20report", ok: true},
		{name: "parent segment", in: "../organizations", ok: false},
		{name: "nested parent segment", in: "projects/../../admin", ok: false},
		{name: "current segment", in: "./projects", ok: false},
		{name: "empty inner segment", in: "projects//velocity", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := JoinSegments(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
