package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "''"},
		{"plain", "output.mp4", "output.mp4"},
		{"space", "my file.mp4", "'my file.mp4'"},
		{"brackets", "[1] en.srt", "'[1] en.srt'"},
		{"single quote", "it's.mp4", `'it'"'"'s.mp4'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShellEscape(tt.input))
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	got := ShellEscapeCommand("ffmpeg", "-i", "in put.mp4", "-codec", "copy", "out.mp4")
	assert.Equal(t, "ffmpeg -i 'in put.mp4' -codec copy out.mp4", got)
}
