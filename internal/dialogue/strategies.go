package dialogue

import (
	"regexp"
	"strconv"
	"time"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

// Nombres de estrategia, usados como etiqueta en metricas y logs.
const (
	StrategyPolicy     = "policy"
	StrategyArithmetic = "arithmetic"
	StrategyDirect     = "direct"
	StrategyConfession = "confession"
	StrategyEmotion    = "emotion"
	StrategyRecall     = "recall"
	StrategyTopic      = "topic"
	StrategyFallback   = "fallback"
)

// Probabilidades documentadas de las ofertas opcionales.
const (
	emotionOfferChance = 0.7
	keepSharingChance  = 0.4
	keepSharingAfter   = 5
)

var arithmeticPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*[-+*/×÷]\s*\d+`)

// Input es lo que recibe cada estrategia. History son los turnos ya
// registrados, sin incluir el texto actual.
type Input struct {
	Text          string
	Lower         string
	Language      string
	History       []domain.ConversationTurn
	LastUtterance string
	Now           time.Time
	Analysis      Analysis
}

// Result es la respuesta de una estrategia.
type Result struct {
	Text     string
	Strategy string
	// ShowMenu pide volver a mostrar el menu principal tras la respuesta.
	ShowMenu bool
}

// Strategy es una etapa de la cascada de texto libre.
type Strategy interface {
	Name() string
	Respond(in Input) (Result, bool)
}

type strategyBase struct {
	loc locale.Provider
	lex *lexicons
	rnd Rand
}

func (b strategyBase) text(in Input, key string, params map[string]string) string {
	return b.loc.Resolve(in.Language, key, params)
}

// policyFilter rechaza temas no permitidos. Va siempre primero.
type policyFilter struct{ strategyBase }

func (policyFilter) Name() string { return StrategyPolicy }

func (s policyFilter) Respond(in Input) (Result, bool) {
	if !s.lex.For(in.Language).policy.MatchString(in.Text) {
		return Result{}, false
	}
	return Result{Text: s.text(in, "policy.refusal", nil), Strategy: StrategyPolicy}, true
}

type arithmeticFilter struct{ strategyBase }

func (arithmeticFilter) Name() string { return StrategyArithmetic }

func (s arithmeticFilter) Respond(in Input) (Result, bool) {
	if !arithmeticPattern.MatchString(in.Lower) {
		return Result{}, false
	}
	return Result{Text: s.text(in, "math.refusal", nil), Strategy: StrategyArithmetic}, true
}

// directAnswers recorre la tabla de respuestas fijas en orden. Si la
// respuesta coincide con lo ultimo dicho, pasa a la siguiente entrada.
type directAnswers struct{ strategyBase }

func (directAnswers) Name() string { return StrategyDirect }

func (s directAnswers) Respond(in Input) (Result, bool) {
	lex := s.lex.For(in.Language)
	for _, id := range directEntryIDs {
		if !containsAny(in.Lower, lex.direct[id]) {
			continue
		}
		reply := s.answer(in, id)
		if reply == "" || reply == in.LastUtterance {
			continue
		}
		return Result{Text: reply, Strategy: StrategyDirect, ShowMenu: id == "main_menu"}, true
	}
	return Result{}, false
}

func (s directAnswers) answer(in Input, id string) string {
	switch id {
	case "time":
		return s.text(in, "direct.time.reply", map[string]string{"time": in.Now.Format("15:04")})
	case "date":
		return s.text(in, "direct.date.reply", map[string]string{"date": FormatDate(s.loc, in.Language, in.Now)})
	case "joke", "compliment":
		return pickExcluding(s.rnd, s.loc.Pool(in.Language, "direct."+id+".pool"), in.LastUtterance)
	default:
		return s.text(in, "direct."+id+".reply", nil)
	}
}

// FormatDate escribe una fecha larga con los nombres del catalogo.
func FormatDate(loc locale.Provider, lang string, t time.Time) string {
	months := loc.Pool(lang, "calendar.months")
	weekdays := loc.Pool(lang, "calendar.weekdays")
	params := map[string]string{
		"day":  strconv.Itoa(t.Day()),
		"year": strconv.Itoa(t.Year()),
	}
	if m := int(t.Month()) - 1; m < len(months) {
		params["month"] = months[m]
	}
	if d := int(t.Weekday()); d < len(weekdays) {
		params["weekday"] = weekdays[d]
	}
	return loc.Resolve(lang, "calendar.date", params)
}

// confessionDetector no se activa con pedidos de recuerdo ("te acuerdas de mi secreto").
type confessionDetector struct{ strategyBase }

func (confessionDetector) Name() string { return StrategyConfession }

func (s confessionDetector) Respond(in Input) (Result, bool) {
	lex := s.lex.For(in.Language)
	if !containsAny(in.Lower, lex.confession) || lex.isRecallRequest(in.Text) {
		return Result{}, false
	}
	reply := pickExcluding(s.rnd, s.loc.Pool(in.Language, "confession.replies"), in.LastUtterance)
	return Result{Text: reply, Strategy: StrategyConfession}, true
}

type emotionDetector struct{ strategyBase }

func (emotionDetector) Name() string { return StrategyEmotion }

func (s emotionDetector) Respond(in Input) (Result, bool) {
	lex := s.lex.For(in.Language)
	for _, cat := range emotionCategories {
		if !lex.emotions[cat].MatchString(in.Text) {
			continue
		}
		reply := s.text(in, "emotion."+cat+".reply", nil)
		if in.Analysis.Negative && s.rnd.Float64() < emotionOfferChance {
			if offer := pick(s.rnd, s.loc.Pool(in.Language, "emotion.offers")); offer != "" {
				reply += " " + offer
			}
		}
		return Result{Text: reply, Strategy: StrategyEmotion}, true
	}
	return Result{}, false
}

type topicContinuation struct{ strategyBase }

func (topicContinuation) Name() string { return StrategyTopic }

func (s topicContinuation) Respond(in Input) (Result, bool) {
	lex := s.lex.For(in.Language)
	if cat, ok := lex.topicCategory(in.Analysis.MainTopic); ok {
		return Result{Text: s.text(in, "topic."+cat+".advice", nil), Strategy: StrategyTopic}, true
	}
	if in.Analysis.TurnCount > keepSharingAfter && s.rnd.Float64() < keepSharingChance {
		reply := pickExcluding(s.rnd, s.loc.Pool(in.Language, "topic.keep_sharing"), in.LastUtterance)
		return Result{Text: reply, Strategy: StrategyTopic}, true
	}
	return Result{}, false
}
