package dialogue

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

var firstNumber = regexp.MustCompile(`-?\d+`)

// TurnLog es el registro de conversacion que consulta y alimenta el motor.
type TurnLog interface {
	History(ctx context.Context, accountID string) ([]domain.ConversationTurn, error)
	Append(ctx context.Context, accountID string, turns ...domain.ConversationTurn) error
}

// GoalTracker son las operaciones de metas que disparan los nodos de accion.
type GoalTracker interface {
	AddGoal(ctx context.Context, accountID, name string) (domain.Goal, error)
	ListGoals(ctx context.Context, accountID string) ([]domain.Goal, error)
	MarkDone(ctx context.Context, accountID string, index int) (domain.Goal, error)
}

// Recorder recibe los eventos medibles del motor. observe.Metrics lo implementa.
type Recorder interface {
	RecordUtterance(ctx context.Context, strategy string)
	RecordGuidedSelection(ctx context.Context, node string)
	RecordRemoteFailure(ctx context.Context)
}

// OptionView es una opcion ya traducida, lista para mostrar.
type OptionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Reply es lo que el usuario ve tras una transicion.
type Reply struct {
	Utterances []string            `json:"utterances"`
	Options    []OptionView        `json:"options"`
	Mode       domain.DialogueMode `json:"mode"`
	NodeID     string              `json:"node_id,omitempty"`
	// Strategy es la etapa de la cascada que respondio un texto libre.
	Strategy string `json:"strategy,omitempty"`
}

// Engine es la maquina de estados del dialogo. No guarda estado de sesion:
// cada operacion recibe un SessionState y devuelve el siguiente.
type Engine struct {
	tree      *Tree
	loc       locale.Provider
	responder *Responder
	log       TurnLog
	goals     GoalTracker
	logger    *zap.Logger
	metrics   Recorder
	now       func() time.Time
	rnd       Rand
}

type EngineOption func(*Engine)

func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m Recorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithRand(rnd Rand) EngineOption {
	return func(e *Engine) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

func NewEngine(tree *Tree, loc locale.Provider, responder *Responder, log TurnLog, goals GoalTracker, opts ...EngineOption) *Engine {
	e := &Engine{
		tree:      tree,
		loc:       loc,
		responder: responder,
		log:       log,
		goals:     goals,
		logger:    zap.NewNop(),
		now:       time.Now,
		rnd:       NewRand(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// turn acumula las frases de una transicion.
type turn struct {
	st         domain.SessionState
	utterances []string
	strategy   string
}

func (t *turn) say(text string) {
	if text == "" {
		return
	}
	t.utterances = append(t.utterances, text)
	t.st.LastUtterance = text
}

func (t *turn) idle() {
	t.st.Mode = domain.ModeIdle
	t.st.NodeID = ""
	t.st.Step = 0
}

func (e *Engine) text(st domain.SessionState, key string, params map[string]string) string {
	return e.loc.Resolve(st.Language, key, params)
}

func (e *Engine) finish(t *turn) (domain.SessionState, Reply) {
	return t.st, Reply{
		Utterances: t.utterances,
		Options:    e.Options(t.st),
		Mode:       t.st.Mode,
		NodeID:     t.st.NodeID,
		Strategy:   t.strategy,
	}
}

// Options devuelve las opciones visibles para el estado dado.
func (e *Engine) Options(st domain.SessionState) []OptionView {
	node := e.current(st)
	out := make([]OptionView, 0, len(node.Choices))
	for _, c := range node.Choices {
		out = append(out, OptionView{ID: c.ID, Label: e.text(st, c.LabelKey, nil)})
	}
	return out
}

func (e *Engine) current(st domain.SessionState) *Node {
	if st.Mode != domain.ModeIdle {
		if n, ok := e.tree.Node(st.NodeID); ok {
			return n
		}
	}
	return e.tree.Root()
}

// Greet saluda al iniciar sesion y muestra el menu principal. No se registra.
func (e *Engine) Greet(st domain.SessionState, name string, kind domain.GreetingKind) (domain.SessionState, Reply) {
	t := &turn{st: st}
	t.idle()
	t.say(e.text(st, "greeting."+string(kind), map[string]string{"name": name}))
	t.say(e.text(st, e.tree.Root().PromptKey(), nil))
	return e.finish(t)
}

// ShowMenu vuelve a Idle y muestra el menu principal.
func (e *Engine) ShowMenu(st domain.SessionState) (domain.SessionState, Reply) {
	t := &turn{st: st}
	e.showMenu(t)
	return e.finish(t)
}

func (e *Engine) showMenu(t *turn) {
	t.idle()
	t.say(e.text(t.st, e.tree.Root().PromptKey(), nil))
}

// SelectOption aplica una opcion del nodo actual. Un id desconocido no cambia nada.
func (e *Engine) SelectOption(ctx context.Context, st domain.SessionState, optionID string) (domain.SessionState, Reply, error) {
	t := &turn{st: st}
	node := e.current(st)
	choice, ok := node.Choice(optionID)
	if !ok {
		e.logger.Warn("unknown dialogue option",
			zap.String("account_id", st.AccountID),
			zap.String("node", node.ID),
			zap.String("option", optionID),
		)
		s, r := e.finish(t)
		return s, r, nil
	}
	if e.metrics != nil {
		e.metrics.RecordGuidedSelection(ctx, choice.Target)
	}

	switch choice.Target {
	case TargetMain:
		e.showMenu(t)
	case TargetBack:
		parent, ok := e.tree.Node(node.Parent)
		if !ok || parent.ID == e.tree.Root().ID {
			e.showMenu(t)
		} else {
			e.enterMenu(t, parent)
		}
	default:
		target, ok := e.tree.Node(choice.Target)
		if !ok {
			return st, Reply{}, fmt.Errorf("%w: dangling target %q", ErrInvalidTree, choice.Target)
		}
		if err := e.enter(ctx, t, target); err != nil {
			return st, Reply{}, err
		}
	}
	s, r := e.finish(t)
	return s, r, nil
}

func (e *Engine) enter(ctx context.Context, t *turn, target *Node) error {
	switch target.Kind {
	case KindMenu:
		e.enterMenu(t, target)
	case KindResponse:
		content, err := e.content(ctx, t.st, target)
		if err != nil {
			return err
		}
		t.say(content)
		if target.ReturnToIdle || t.st.Mode == domain.ModeIdle {
			t.idle()
		} else {
			t.st.Step++
		}
	case KindInput:
		return e.enterInput(ctx, t, target)
	}
	return nil
}

func (e *Engine) enterMenu(t *turn, node *Node) {
	t.say(e.text(t.st, node.PromptKey(), nil))
	t.st.Mode = domain.ModeGuided
	t.st.NodeID = node.ID
	t.st.Step = 0
}

func (e *Engine) enterInput(ctx context.Context, t *turn, node *Node) error {
	if node.Action == ActionTrackGoal {
		goals, err := e.goals.ListGoals(ctx, t.st.AccountID)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			t.say(e.text(t.st, "goal.empty", nil))
			return nil
		}
		t.say(e.goalList(t.st, goals))
	}
	t.say(e.text(t.st, node.PromptKey(), nil))
	t.st.Mode = domain.ModeAwaitingInput
	t.st.NodeID = node.ID
	t.st.Step = 0
	return nil
}

func (e *Engine) content(ctx context.Context, st domain.SessionState, node *Node) (string, error) {
	switch {
	case node.Action == ActionListGoals:
		goals, err := e.goals.ListGoals(ctx, st.AccountID)
		if err != nil {
			return "", err
		}
		if len(goals) == 0 {
			return e.text(st, "goal.empty", nil), nil
		}
		return e.goalList(st, goals), nil
	case node.Pooled:
		return pickExcluding(e.rnd, e.loc.Pool(st.Language, node.PoolKey()), st.LastUtterance), nil
	default:
		return e.text(st, node.TextKey(), nil), nil
	}
}

// goalList arma la lista numerada desde 1, en orden de alta.
func (e *Engine) goalList(st domain.SessionState, goals []domain.Goal) string {
	lines := make([]string, 0, len(goals)+1)
	lines = append(lines, e.text(st, "goal.list_header", nil))
	for i, g := range goals {
		lines = append(lines, e.text(st, "goal.item", map[string]string{
			"index":  strconv.Itoa(i + 1),
			"name":   g.Name,
			"status": e.text(st, "goal.status."+string(g.Status), nil),
			"date":   domain.DateOf(g.DateAdded).String(),
		}))
	}
	return strings.Join(lines, "\n")
}

// SubmitFreeText procesa texto escrito o dictado. En AwaitingInput el texto
// completa la accion pendiente; en otro caso pasa por la cascada y se registra.
func (e *Engine) SubmitFreeText(ctx context.Context, st domain.SessionState, text string) (domain.SessionState, Reply, error) {
	text = strings.TrimSpace(text)
	t := &turn{st: st}
	if text == "" {
		s, r := e.finish(t)
		return s, r, nil
	}

	if st.Mode == domain.ModeAwaitingInput {
		if node, ok := e.tree.Node(st.NodeID); ok && node.Kind == KindInput {
			if err := e.completeInput(ctx, t, node, text); err != nil {
				return st, Reply{}, err
			}
			s, r := e.finish(t)
			return s, r, nil
		}
	}
	t.idle()

	history, err := e.log.History(ctx, st.AccountID)
	if err != nil {
		return st, Reply{}, err
	}
	now := e.now()
	res, err := e.responder.Respond(ctx, text, st.Language, history, st.LastUtterance, now)
	if err != nil {
		e.logger.Warn("free text resolver failed", zap.String("account_id", st.AccountID), zap.Error(err))
		if e.metrics != nil {
			e.metrics.RecordRemoteFailure(ctx)
		}
		t.say(e.text(st, "error.remote", nil))
		s, r := e.finish(t)
		return s, r, nil
	}

	err = e.log.Append(ctx, st.AccountID,
		domain.ConversationTurn{Sender: domain.SenderUser, Text: text, Timestamp: now},
		domain.ConversationTurn{Sender: domain.SenderAgent, Text: res.Text, Timestamp: e.now()},
	)
	if err != nil {
		return st, Reply{}, err
	}
	if e.metrics != nil {
		e.metrics.RecordUtterance(ctx, res.Strategy)
	}
	t.strategy = res.Strategy
	t.say(res.Text)
	if res.ShowMenu {
		t.say(e.text(st, e.tree.Root().PromptKey(), nil))
		// La repeticion se compara contra la respuesta, no contra el menu.
		t.st.LastUtterance = res.Text
	}
	s, r := e.finish(t)
	return s, r, nil
}

func (e *Engine) completeInput(ctx context.Context, t *turn, node *Node, text string) error {
	switch node.Action {
	case ActionAddGoal:
		goal, err := e.goals.AddGoal(ctx, t.st.AccountID, text)
		if err != nil {
			return err
		}
		t.say(e.text(t.st, "goal.added", map[string]string{"name": goal.Name}))
	case ActionTrackGoal:
		goals, err := e.goals.ListGoals(ctx, t.st.AccountID)
		if err != nil {
			return err
		}
		invalid := func() {
			t.say(e.text(t.st, "goal.track_invalid", map[string]string{"count": strconv.Itoa(len(goals))}))
		}
		index, err := strconv.Atoi(firstNumber.FindString(text))
		if err != nil || index < 1 || index > len(goals) {
			invalid()
			return nil
		}
		goal, err := e.goals.MarkDone(ctx, t.st.AccountID, index)
		if errors.Is(err, domain.ErrIndexOutOfRange) {
			invalid()
			return nil
		}
		if err != nil {
			return err
		}
		t.say(e.text(t.st, "goal.tracked", map[string]string{"name": goal.Name}))
	default:
		return fmt.Errorf("%w: input %q without action", ErrInvalidTree, node.ID)
	}
	e.showMenu(t)
	return nil
}
