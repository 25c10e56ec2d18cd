package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"diary-companion/internal/domain"
	"diary-companion/internal/llm"
)

func TestGreetShowsMenuWithoutLogging(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	st := domain.NewSessionState("alice", "en")

	st, reply := f.engine.Greet(st, "alice", domain.GreetingFirst)

	want := []string{f.en("greeting.first", map[string]string{"name": "alice"}), f.en("tree.main.prompt", nil)}
	if len(reply.Utterances) != 2 || reply.Utterances[0] != want[0] || reply.Utterances[1] != want[1] {
		t.Fatalf("unexpected greeting: %#v", reply.Utterances)
	}
	if st.Mode != domain.ModeIdle {
		t.Fatalf("expected idle, got %s", st.Mode)
	}
	if !containsID(optionIDs(reply.Options), "sadness") {
		t.Fatalf("main menu options missing: %v", optionIDs(reply.Options))
	}
	if len(f.log.turns["alice"]) != 0 {
		t.Fatalf("greeting must not be logged")
	}
}

func TestSadnessStoryAndBack(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")

	st, reply, err := f.engine.SelectOption(ctx, st, "sadness")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Utterances[0] != f.en("tree.sadness.prompt", nil) {
		t.Fatalf("unexpected prompt %q", reply.Utterances[0])
	}
	if st.Mode != domain.ModeGuided || st.NodeID != "sadness" || st.Step != 0 {
		t.Fatalf("unexpected state %+v", st)
	}
	ids := optionIDs(reply.Options)
	for _, id := range []string{"story", "quote", "exercise", "talk_more", "back"} {
		if !containsID(ids, id) {
			t.Fatalf("expected option %q in %v", id, ids)
		}
	}

	st, reply, err = f.engine.SelectOption(ctx, st, "story")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Utterances) != 1 || reply.Utterances[0] != f.en("tree.sadness.story.text", nil) {
		t.Fatalf("unexpected story: %#v", reply.Utterances)
	}
	if st.Mode != domain.ModeGuided || st.NodeID != "sadness" || st.Step != 1 {
		t.Fatalf("expected to stay in sadness, got %+v", st)
	}
	if strings.Join(optionIDs(reply.Options), ",") != strings.Join(ids, ",") {
		t.Fatalf("expected same options again, got %v", optionIDs(reply.Options))
	}

	st, reply, err = f.engine.SelectOption(ctx, st, "back")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Mode != domain.ModeIdle || st.NodeID != "" {
		t.Fatalf("expected idle without node, got %+v", st)
	}
	if reply.Utterances[0] != f.en("tree.main.prompt", nil) {
		t.Fatalf("expected main menu prompt, got %q", reply.Utterances[0])
	}
	if len(f.log.turns["alice"]) != 0 {
		t.Fatalf("guided content must not be logged")
	}
}

func TestBackFromNestedMenuReturnsToParent(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")

	st, _, _ = f.engine.SelectOption(ctx, st, "sadness")
	st, reply, _ := f.engine.SelectOption(ctx, st, "comfort")
	if st.NodeID != "sadness.comfort" || reply.Utterances[0] != f.en("tree.sadness.comfort.prompt", nil) {
		t.Fatalf("unexpected state after comfort: %+v", st)
	}

	st, reply, _ = f.engine.SelectOption(ctx, st, "back")
	if st.Mode != domain.ModeGuided || st.NodeID != "sadness" {
		t.Fatalf("expected to return to sadness, got %+v", st)
	}
	if reply.Utterances[0] != f.en("tree.sadness.prompt", nil) {
		t.Fatalf("expected sadness prompt, got %q", reply.Utterances[0])
	}
}

func TestMainSentinelAndReturnToIdle(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")

	st, _, _ = f.engine.SelectOption(ctx, st, "entertainment")
	st, _, _ = f.engine.SelectOption(ctx, st, "movies")
	st, _, _ = f.engine.SelectOption(ctx, st, "main")
	if st.Mode != domain.ModeIdle {
		t.Fatalf("expected idle after main, got %+v", st)
	}

	st, _, _ = f.engine.SelectOption(ctx, st, "sadness")
	st, _, _ = f.engine.SelectOption(ctx, st, "comfort")
	st, reply, _ := f.engine.SelectOption(ctx, st, "thanks")
	if st.Mode != domain.ModeIdle || reply.Utterances[0] != f.en("tree.sadness.comfort.thanks.text", nil) {
		t.Fatalf("expected thanks then idle, got %+v %v", st, reply.Utterances)
	}

	st, reply, _ = f.engine.SelectOption(ctx, st, "chat")
	if st.Mode != domain.ModeIdle || reply.Utterances[0] != f.en("tree.chat.text", nil) {
		t.Fatalf("expected chat text and idle, got %+v", st)
	}
}

func TestUnknownOptionIsNoop(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")
	st, _, _ = f.engine.SelectOption(ctx, st, "stress")

	next, reply, err := f.engine.SelectOption(ctx, st, "dance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != st {
		t.Fatalf("state changed: %+v -> %+v", st, next)
	}
	if len(reply.Utterances) != 0 {
		t.Fatalf("expected no utterances, got %v", reply.Utterances)
	}
}

func TestPooledResponseAvoidsRepeat(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")
	st, _, _ = f.engine.SelectOption(ctx, st, "sadness")

	st, first, _ := f.engine.SelectOption(ctx, st, "quote")
	_, second, _ := f.engine.SelectOption(ctx, st, "quote")
	if first.Utterances[0] == second.Utterances[0] {
		t.Fatalf("expected a different quote, got %q twice", first.Utterances[0])
	}
}

func TestGoalFlow(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")

	st, _, _ = f.engine.SelectOption(ctx, st, "goals")
	st, reply, _ := f.engine.SelectOption(ctx, st, "track")
	if reply.Utterances[0] != f.en("goal.empty", nil) || st.NodeID != "goals" {
		t.Fatalf("expected empty goals message, got %v %+v", reply.Utterances, st)
	}

	st, reply, _ = f.engine.SelectOption(ctx, st, "add")
	if st.Mode != domain.ModeAwaitingInput || st.NodeID != "goals.add" {
		t.Fatalf("expected awaiting input, got %+v", st)
	}
	if ids := optionIDs(reply.Options); len(ids) != 1 || ids[0] != "cancel" {
		t.Fatalf("expected only cancel, got %v", ids)
	}

	st, reply, err := f.engine.SubmitFreeText(ctx, st, "Run 5k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Mode != domain.ModeIdle {
		t.Fatalf("expected idle after add, got %+v", st)
	}
	if reply.Utterances[0] != f.en("goal.added", map[string]string{"name": "Run 5k"}) || reply.Utterances[1] != f.en("tree.main.prompt", nil) {
		t.Fatalf("unexpected add reply %v", reply.Utterances)
	}
	if len(f.goals.goals) != 1 || len(f.log.turns["alice"]) != 0 {
		t.Fatalf("goal payload must be stored as goal, not logged")
	}

	st, _, _ = f.engine.SelectOption(ctx, st, "goals")
	st, reply, _ = f.engine.SelectOption(ctx, st, "track")
	if st.Mode != domain.ModeAwaitingInput || !strings.Contains(reply.Utterances[0], "1. Run 5k") {
		t.Fatalf("expected numbered list, got %v", reply.Utterances)
	}

	st, reply, _ = f.engine.SubmitFreeText(ctx, st, "7")
	if st.Mode != domain.ModeAwaitingInput {
		t.Fatalf("out of range must keep awaiting, got %+v", st)
	}
	if reply.Utterances[0] != f.en("goal.track_invalid", map[string]string{"count": "1"}) {
		t.Fatalf("unexpected retry prompt %v", reply.Utterances)
	}

	for _, in := range []string{"-1", "0", "goal -1"} {
		st, reply, _ = f.engine.SubmitFreeText(ctx, st, in)
		if st.Mode != domain.ModeAwaitingInput {
			t.Fatalf("input %q must keep awaiting, got %+v", in, st)
		}
		if reply.Utterances[0] != f.en("goal.track_invalid", map[string]string{"count": "1"}) {
			t.Fatalf("input %q: unexpected retry prompt %v", in, reply.Utterances)
		}
		if f.goals.goals[0].Status != domain.GoalInProgress {
			t.Fatalf("input %q must not change goal status", in)
		}
	}

	st, reply, _ = f.engine.SubmitFreeText(ctx, st, "number 1 please")
	if st.Mode != domain.ModeIdle {
		t.Fatalf("expected idle after tracking, got %+v", st)
	}
	if reply.Utterances[0] != f.en("goal.tracked", map[string]string{"name": "Run 5k"}) {
		t.Fatalf("unexpected tracked reply %v", reply.Utterances)
	}
	if f.goals.goals[0].Status != domain.GoalDone {
		t.Fatalf("goal not marked done")
	}
}

func TestCancelInputReturnsToGoalsMenu(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")
	st, _, _ = f.engine.SelectOption(ctx, st, "goals")
	st, _, _ = f.engine.SelectOption(ctx, st, "add")

	st, reply, _ := f.engine.SelectOption(ctx, st, "cancel")
	if st.Mode != domain.ModeGuided || st.NodeID != "goals" {
		t.Fatalf("expected goals menu, got %+v", st)
	}
	if reply.Utterances[0] != f.en("tree.goals.prompt", nil) {
		t.Fatalf("unexpected prompt %v", reply.Utterances)
	}
}

func TestFreeTextInGuidedAbandonsFlow(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")
	st, _, _ = f.engine.SelectOption(ctx, st, "stress")

	st, reply, err := f.engine.SubmitFreeText(ctx, st, "thank you")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Mode != domain.ModeIdle || st.NodeID != "" {
		t.Fatalf("expected idle, got %+v", st)
	}
	if reply.Utterances[0] != f.en("direct.thanks.reply", nil) {
		t.Fatalf("unexpected reply %v", reply.Utterances)
	}
	if turns := f.log.turns["alice"]; len(turns) != 2 || turns[0].Sender != domain.SenderUser || turns[1].Sender != domain.SenderAgent {
		t.Fatalf("expected user and agent turns logged, got %+v", turns)
	}
}

func TestSecretRecallScenario(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")

	st, _, _ = f.engine.SubmitFreeText(ctx, st, "secret: I dislike my job")
	st, reply, err := f.engine.SubmitFreeText(ctx, st, "do you remember my secret?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := f.en("recall.secret", map[string]string{"secret": "I dislike my job"})
	if reply.Utterances[0] != want {
		t.Fatalf("expected %q, got %q", want, reply.Utterances[0])
	}
	if reply.Strategy != StrategyRecall {
		t.Fatalf("expected recall strategy, got %s", reply.Strategy)
	}
	if st.LastUtterance != want {
		t.Fatalf("last utterance not updated")
	}
}

func TestRemoteFailureEmitsOneUtterance(t *testing.T) {
	client := &llm.MockClient{Err: errors.New("connection refused")}
	f := newFixture(t, stubRand{}, nil)
	responder, err := NewResponder(f.loc, "en", stubRand{}, NewRemoteResolver(client, f.loc))
	if err != nil {
		t.Fatalf("new responder: %v", err)
	}
	engine := NewEngine(f.tree, f.loc, responder, f.log, f.goals)

	st := domain.NewSessionState("alice", "en")
	st, _, _ = engine.SelectOption(context.Background(), st, "stress")
	st, reply, err := engine.SubmitFreeText(context.Background(), st, "hello there friend")
	if err != nil {
		t.Fatalf("remote failure must not surface as error: %v", err)
	}
	if len(reply.Utterances) != 1 || reply.Utterances[0] != f.en("error.remote", nil) {
		t.Fatalf("expected one error utterance, got %v", reply.Utterances)
	}
	if st.Mode != domain.ModeIdle {
		t.Fatalf("expected idle, got %s", st.Mode)
	}
	if len(f.log.turns["alice"]) != 0 {
		t.Fatalf("failed exchange must not be logged")
	}
	if client.Calls != 1 {
		t.Fatalf("expected one remote call, got %d", client.Calls)
	}
}

func TestHistoryErrorSurfaces(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	f.log.err = errors.New("disk gone")
	st := domain.NewSessionState("alice", "en")
	if _, _, err := f.engine.SubmitFreeText(context.Background(), st, "hello"); err == nil {
		t.Fatalf("expected storage error")
	}
}

func TestEmptyFreeTextIsNoop(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	st := domain.NewSessionState("alice", "en")
	next, reply, err := f.engine.SubmitFreeText(context.Background(), st, "   ")
	if err != nil || next != st || len(reply.Utterances) != 0 {
		t.Fatalf("expected no-op, got %+v %v %v", next, reply, err)
	}
}

func TestMainMenuDirectAnswerShowsMenu(t *testing.T) {
	f := newFixture(t, stubRand{}, nil)
	st := domain.NewSessionState("alice", "en")
	_, reply, _ := f.engine.SubmitFreeText(context.Background(), st, "show the main menu")
	if len(reply.Utterances) != 2 || reply.Utterances[1] != f.en("tree.main.prompt", nil) {
		t.Fatalf("expected reply plus menu, got %v", reply.Utterances)
	}
}

func TestMainMenuRequestNotRepeated(t *testing.T) {
	f := newFixture(t, stubRand{f: 0.9}, nil)
	ctx := context.Background()
	st := domain.NewSessionState("alice", "en")
	answer := f.en("direct.main_menu.reply", nil)

	st, reply, err := f.engine.SubmitFreeText(ctx, st, "main menu")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reply.Utterances) != 2 || reply.Utterances[0] != answer || reply.Utterances[1] != f.en("tree.main.prompt", nil) {
		t.Fatalf("expected answer plus menu, got %v", reply.Utterances)
	}
	if st.LastUtterance != answer {
		t.Fatalf("expected last utterance to be the answer, got %q", st.LastUtterance)
	}

	_, reply, _ = f.engine.SubmitFreeText(ctx, st, "main menu")
	if len(reply.Utterances) == 0 || reply.Utterances[0] == answer {
		t.Fatalf("same direct answer returned twice in a row: %v", reply.Utterances)
	}
}
