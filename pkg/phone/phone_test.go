package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"ten digit local", "9876543210", "+919876543210"},
		{"with country code", "+91 98765 43210", "+919876543210"},
		{"spaces and dashes", " 98765-43210 ", "+919876543210"},
		{"invalid kept as is", "12345", "12345"},
		{"garbage kept trimmed", "  call after 6pm  ", "call after 6pm"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}
