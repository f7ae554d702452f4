package crawler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChromedpConfig_Defaults(t *testing.T) {
	config := &ChromedpConfig{}

	// Check initial state (zeros/false)
	assert.Equal(t, time.Duration(0), config.Timeout)
	assert.Empty(t, config.UserAgent)
	assert.Equal(t, int64(0), config.MaxBodySize)
	assert.Empty(t, config.RemoteURL)
	assert.False(t, config.NoSandbox)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http URL", "http://example.com/docs", false},
		{"https URL", "https://example.com/pricing", false},
		{"https with query", "https://example.com/search?q=refund+policy", false},
		{"file scheme", "file:///etc/passwd", true},
		{"chrome scheme", "chrome://settings", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"relative URL", "/docs/faq", true},
		{"no host", "https://", true},
		{"garbage", "ht tp://bad url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	t.Run("collapses blank line runs", func(t *testing.T) {
		in := "Pricing\n\n\n\nStarter plan\n\n\nPro plan"
		out := normalizeText(in)
		assert.Equal(t, "Pricing\n\nStarter plan\n\nPro plan", out)
	})

	t.Run("trims trailing whitespace per line", func(t *testing.T) {
		in := "Hello   \nWorld\t\n"
		out := normalizeText(in)
		assert.Equal(t, "Hello\nWorld", out)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", normalizeText(""))
		assert.Equal(t, "", normalizeText("\n\n\n"))
	})
}

func TestTruncateText(t *testing.T) {
	t.Run("short text unchanged", func(t *testing.T) {
		assert.Equal(t, "hello", truncateText("hello", 100))
	})

	t.Run("cuts at limit", func(t *testing.T) {
		long := strings.Repeat("a", 100)
		out := truncateText(long, 10)
		assert.Equal(t, 10, len(out))
	})

	t.Run("does not split multibyte runes", func(t *testing.T) {
		// Each rune is 3 bytes; a 7-byte cut would land mid-rune
		out := truncateText("日本語テキスト", 7)
		assert.Equal(t, "日本", out)
	})
}

func TestChromedpFetcher_Close(t *testing.T) {
	// Close must not panic with nil allocCancel
	f := &ChromedpFetcher{
		config: &ChromedpConfig{},
	}

	err := f.Close()
	assert.NoError(t, err)
}

func TestNewChromedpFetcher_Defaults(t *testing.T) {
	f, err := NewChromedpFetcher(nil)
	assert.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, defaultFetchTimeout, f.config.Timeout)
	assert.Equal(t, int64(defaultMaxBodySize), f.config.MaxBodySize)
	assert.NotNil(t, f.logger)
}
