package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFormatted(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{"embedded text", `{"success":true,"formatted":"✓ 所有目標屬性均已達成\n【頭盔】"}`, "✓ 所有目標屬性均已達成\n【頭盔】"},
		{"no formatted field", `{"success":true}`, ""},
		{"empty", ``, ""},
		{"malformed", `{"formatted":`, ""},
		{"not an object", `"text"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Build{Result: []byte(tt.result)}
			assert.Equal(t, tt.want, b.Formatted())
		})
	}
}
