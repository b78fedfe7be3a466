package chunker

import (
	"strings"
	"testing"
)

func TestExcerptShortTextUnchanged(t *testing.T) {
	text := "Short content."
	if got := Excerpt(text, 200); got != text {
		t.Errorf("expected short text unchanged, got %q", got)
	}
}

func TestExcerptDisabledByNonPositiveMax(t *testing.T) {
	text := strings.Repeat("word ", 200)
	if got := Excerpt(text, 0); got != text {
		t.Error("expected maxChars <= 0 to disable truncation")
	}
}

func TestExcerptTruncatesLongText(t *testing.T) {
	text := strings.Repeat("This is a sentence about caching layers. ", 50)
	got := Excerpt(text, 100)
	if len(got) > 103 {
		t.Errorf("expected excerpt roughly bounded by maxChars, got length %d", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected truncated excerpt to end with ellipsis")
	}
}

func TestExcerptBreaksOnWordBoundary(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	got := Excerpt(text, 12)
	if strings.HasSuffix(strings.TrimSuffix(got, "…"), "thre") {
		t.Errorf("expected word-boundary break, got %q", got)
	}
}

func TestExcerptPrefersParagraphBoundary(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph that runs on much longer than the first one did."
	got := Excerpt(text, 60)
	if !strings.HasPrefix(got, "First paragraph here.") {
		t.Errorf("expected paragraph-boundary break, got %q", got)
	}
}
