package dialogue

import (
	"errors"
	"strings"
	"testing"

	"diary-companion/internal/locale"
)

func TestDefaultTreeShape(t *testing.T) {
	loc, err := locale.Default("fr")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tree, err := DefaultTree(loc)
	if err != nil {
		t.Fatalf("default tree: %v", err)
	}
	if tree.Root().ID != "main" {
		t.Fatalf("expected root main, got %s", tree.Root().ID)
	}

	sadness, ok := tree.Node("sadness")
	if !ok {
		t.Fatalf("sadness node missing")
	}
	for _, id := range []string{"story", "quote", "exercise", "talk_more", "back"} {
		if _, ok := sadness.Choice(id); !ok {
			t.Fatalf("sadness should offer %q", id)
		}
	}

	parents := map[string]string{
		"sadness":                "main",
		"sadness.comfort":        "sadness",
		"entertainment.movies":   "entertainment",
		"goals.add":              "goals",
		"sadness.comfort.thanks": "sadness.comfort",
	}
	for id, want := range parents {
		n, ok := tree.Node(id)
		if !ok {
			t.Fatalf("node %s missing", id)
		}
		if n.Parent != want {
			t.Fatalf("node %s: expected parent %s, got %s", id, want, n.Parent)
		}
	}

	mood, _ := tree.Node("mood")
	low, ok := mood.Choice("low")
	if !ok || low.Target != "sadness" || low.LabelKey != "tree.mood.low.label" {
		t.Fatalf("unexpected mapped choice: %+v", low)
	}
}

func TestLoadTreeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"dangling target", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [missing]\n"},
		{"unknown kind", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [a]\n  - id: a\n    kind: banner\n"},
		{"root not menu", "root: main\nnodes:\n  - id: main\n    kind: response\n"},
		{"duplicate node", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [a]\n  - id: a\n    kind: response\n  - id: a\n    kind: response\n"},
		{"unreachable", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [a]\n  - id: a\n    kind: response\n  - id: b\n    kind: response\n"},
		{"input without action", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [a]\n  - id: a\n    kind: input\n"},
		{"unknown sentinel", "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [\"@home\"]\n"},
		{"unknown field", "root: main\nnodes:\n  - id: main\n    kind: menu\n    colour: red\n    choices: [a]\n  - id: a\n    kind: response\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTree(strings.NewReader(tc.yaml), nil)
			if !errors.Is(err, ErrInvalidTree) {
				t.Fatalf("expected ErrInvalidTree, got %v", err)
			}
		})
	}
}

func TestLoadTreeRequiresCatalogKeys(t *testing.T) {
	loc, err := locale.Default("en")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	src := "root: main\nnodes:\n  - id: main\n    kind: menu\n    choices: [unknown_topic]\n  - id: unknown_topic\n    kind: response\n"
	_, err = LoadTree(strings.NewReader(src), loc)
	if !errors.Is(err, ErrInvalidTree) {
		t.Fatalf("expected ErrInvalidTree, got %v", err)
	}
	if !strings.Contains(err.Error(), "tree.unknown_topic.text") {
		t.Fatalf("expected missing key in error, got %v", err)
	}
}

func TestDefaultChoiceNaming(t *testing.T) {
	if got := defaultChoiceID("sadness.story"); got != "story" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := defaultChoiceID(TargetBack); got != "back" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := defaultLabelKey(TargetMain); got != "common.main_menu" {
		t.Fatalf("unexpected label %q", got)
	}
}
