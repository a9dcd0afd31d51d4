package bboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string
	}{
		{"normal", "user@example.com", "u***@example.com"},
		{"short local part", "ab@example.com", "***@example.com"},
		{"single char", "a@example.com", "***@example.com"},
		{"empty", "", ""},
		{"not an email", "garbage", "***"},
		{"two at signs", "a@b@c", "***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskEmail(tt.email))
		})
	}
}

func TestHashEmail(t *testing.T) {
	h := hashEmail("user@example.com")
	assert.Len(t, h, 8)
	assert.Equal(t, h, hashEmail("user@example.com"))
	assert.NotEqual(t, h, hashEmail("other@example.com"))
	assert.Empty(t, hashEmail(""))
}

func TestMaskUserID(t *testing.T) {
	m := maskUserID(42)
	assert.Len(t, m, 8)
	assert.Equal(t, m, maskUserID(42))
	assert.NotEqual(t, m, maskUserID(43))
}
