package dialogue

import (
	"testing"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	loc, err := locale.Default("en")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	lex, err := compileLexicons(loc, "en")
	if err != nil {
		t.Fatalf("compile lexicons: %v", err)
	}
	return &Analyzer{lex: lex}
}

func TestAnalyzeTopicAndTone(t *testing.T) {
	a := newTestAnalyzer(t)
	history := []domain.ConversationTurn{
		{Sender: domain.SenderUser, Text: "My sister called, she is so annoyed"},
		{Sender: domain.SenderAgent, Text: "Sister sister sister sister"},
		{Sender: domain.SenderUser, Text: "My sister and the whole family are tiring, I'm exhausted"},
		{Sender: domain.SenderUser, Text: "Work was fine though"},
	}
	got := a.Analyze(history, "en")
	if got.MainTopic != "sister" {
		t.Fatalf("expected sister, got %q", got.MainTopic)
	}
	if got.Tone != -2 || !got.Negative {
		t.Fatalf("expected negative tone -2, got %+v", got)
	}
	if got.TurnCount != 4 {
		t.Fatalf("expected 4 turns, got %d", got.TurnCount)
	}
}

func TestAnalyzeWindowAndTies(t *testing.T) {
	a := newTestAnalyzer(t)
	var history []domain.ConversationTurn
	for i := 0; i < 5; i++ {
		history = append(history, domain.ConversationTurn{Sender: domain.SenderUser, Text: "I am happy"})
	}
	for i := 0; i < ContextWindow; i++ {
		history = append(history, domain.ConversationTurn{Sender: domain.SenderUser, Text: "piano guitar"})
	}
	got := a.Analyze(history, "en")
	if got.Tone != 0 {
		t.Fatalf("turns outside the window must not count, got tone %d", got.Tone)
	}
	if got.MainTopic != "piano" {
		t.Fatalf("ties go to the first word seen, got %q", got.MainTopic)
	}
}

func TestWordRegexpStems(t *testing.T) {
	re, err := wordRegexp([]string{"depress*", "sad"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range []string{"I'm depressed", "SAD day", "feeling sad."} {
		if !re.MatchString(in) {
			t.Fatalf("expected match for %q", in)
		}
	}
	for _, in := range []string{"saddle", "undepressed"} {
		if re.MatchString(in) {
			t.Fatalf("unexpected match for %q", in)
		}
	}
	if _, err := wordRegexp(nil); err == nil {
		t.Fatalf("expected error for empty list")
	}
}
