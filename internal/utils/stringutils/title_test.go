package stringutils_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"model-manager/internal/utils/stringutils"
)

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{
			name:    "plain sentence",
			content: "Explain goroutines",
			maxLen:  80,
			want:    "Explain goroutines",
		},
		{
			name:    "collapses whitespace",
			content: "  what   is \n a channel  ",
			maxLen:  80,
			want:    "what is a channel",
		},
		{
			name:    "strips urls",
			content: "check https://example.com/docs please",
			maxLen:  80,
			want:    "check please",
		},
		{
			name:    "keeps markdown link text",
			content: "see [the docs](https://example.com) for details",
			maxLen:  80,
			want:    "see the docs for details",
		},
		{
			name:    "trims trailing punctuation",
			content: "why does this happen???",
			maxLen:  80,
			want:    "why does this happen",
		},
		{
			name:    "nothing usable",
			content: "https://example.com",
			maxLen:  80,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stringutils.GenerateTitle(tt.content, tt.maxLen); got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_Truncates(t *testing.T) {
	content := strings.Repeat("word ", 40)
	got := stringutils.GenerateTitle(content, 30)
	if len(got) > 30 {
		t.Errorf("title length = %d, want <= 30", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated title %q should end with ellipsis", got)
	}
}

func TestGenerateTitle_TruncatesOnRuneBoundary(t *testing.T) {
	// 29 bytes of budget lands mid-rune in three-byte CJK text, so a
	// byte-index slice would emit invalid UTF-8.
	content := strings.Repeat("日本語のタイトル", 10)
	got := stringutils.GenerateTitle(content, 29)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated title %q is not valid UTF-8", got)
	}
	if len(got) > 29 {
		t.Errorf("title length = %d bytes, want <= 29", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated title %q should end with ellipsis", got)
	}
}
