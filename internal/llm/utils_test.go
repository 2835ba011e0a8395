package llm

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataURL(t *testing.T) {
	content := []byte{0x89, 0x50, 0x4e, 0x47}
	b64 := base64.StdEncoding.EncodeToString(content)

	tests := []struct {
		name       string
		ext        string
		wantPrefix string
	}{
		{name: "png", ext: "png", wantPrefix: "data:image/png;base64,"},
		{name: "jpeg with dot", ext: ".jpeg", wantPrefix: "data:image/jpeg;base64,"},
		{name: "jpg uppercase", ext: "JPG", wantPrefix: "data:image/jpeg;base64,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DataURL(content, tt.ext)
			assert.Equal(t, tt.wantPrefix+b64, got)
		})
	}

	t.Run("unknown extension falls back to octet stream", func(t *testing.T) {
		got := DataURL(content, "weirdext")
		assert.True(t, strings.HasSuffix(got, ";base64,"+b64), "payload should survive")
		assert.True(t, strings.HasPrefix(got, "data:"), "still a data URL")
	})
}
