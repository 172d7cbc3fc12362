package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModifyLabel(t *testing.T) {
	tests := []struct {
		name, before, after, want string
	}{
		{name: "one row", before: `[{"Key":"a","V":1},{"Key":"b"}]`, after: `[{"Key":"a","V":2},{"Key":"b"}]`, want: "Modify a"},
		{name: "member order ignored", before: `[{"Key":"a","V":1,"W":2}]`, after: `[{"W":2,"Key":"a","V":1}]`, want: "Modify Rows"},
		{name: "two rows", before: `[{"Key":"a"},{"Key":"b"}]`, after: `[{"Key":"a","V":1},{"Key":"b","V":1}]`, want: "Modify 2 Rows"},
		{name: "renamed row", before: `[{"Key":"a"}]`, after: `[{"Key":"z"}]`, want: "Modify 2 Rows"},
		{name: "unparsable", before: `[`, after: `[{"Key":"a"}]`, want: "Modify a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, modifyLabel(tt.before, tt.after))
		})
	}
}
