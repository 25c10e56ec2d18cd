package dialogue

import (
	"context"
	"testing"
)

func TestMemoryRecallTopic(t *testing.T) {
	r, loc := newTestResponder(t, stubRand{f: 0.9}, nil)
	history := userTurns("I went hiking with Paul in the mountains", "then we had pizza")

	res, _ := r.Respond(context.Background(), "do you remember the mountains?", "en", history, "", fixedNow)
	want := loc.Resolve("en", "recall.topic", map[string]string{"text": "I went hiking with Paul in the mountains"})
	if res.Strategy != StrategyRecall || res.Text != want {
		t.Fatalf("expected %q, got %s %q", want, res.Strategy, res.Text)
	}
}

func TestMemoryRecallNewestFirst(t *testing.T) {
	r, loc := newTestResponder(t, stubRand{f: 0.9}, nil)
	history := userTurns("my secret is that I sing in the shower", "secret: I still sleep with a teddy bear")

	res, _ := r.Respond(context.Background(), "did you remember my secret", "en", history, "", fixedNow)
	want := loc.Resolve("en", "recall.secret", map[string]string{"secret": "I still sleep with a teddy bear"})
	if res.Text != want {
		t.Fatalf("expected newest secret, got %q", res.Text)
	}
}

func TestMemoryRecallVague(t *testing.T) {
	r, loc := newTestResponder(t, stubRand{f: 0.9}, nil)
	vague := loc.Resolve("en", "recall.vague", nil)

	res, _ := r.Respond(context.Background(), "do you remember the zebra", "en", userTurns("I like trains"), "", fixedNow)
	if res.Text != vague {
		t.Fatalf("expected vague reply, got %q", res.Text)
	}
	res, _ = r.Respond(context.Background(), "do you remember my secret", "en", userTurns("I like trains"), "", fixedNow)
	if res.Text != vague {
		t.Fatalf("expected vague reply without stored secret, got %q", res.Text)
	}
}

func TestMemoryRecallSkipsEarlierRequests(t *testing.T) {
	r, loc := newTestResponder(t, stubRand{f: 0.9}, nil)
	history := userTurns("my colleagues threw me a party", "do you remember my colleague")

	res, _ := r.Respond(context.Background(), "do you remember my colleague", "en", history, "", fixedNow)
	want := loc.Resolve("en", "recall.topic", map[string]string{"text": "my colleagues threw me a party"})
	if res.Text != want {
		t.Fatalf("expected original mention, got %q", res.Text)
	}
}

func TestMentionsUsesSimilarity(t *testing.T) {
	tokens := tokenize("Les collègues du bureau")
	if !mentions(tokens, "collègue") {
		t.Fatalf("expected near match on plural")
	}
	if mentions(tokens, "piscine") {
		t.Fatalf("unexpected match")
	}
}
