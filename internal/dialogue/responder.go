package dialogue

import (
	"context"
	"strings"
	"time"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

// Responder aplica la cascada de estrategias sobre un texto libre.
// La primera estrategia que responde gana; si ninguna lo hace, decide el Resolver.
type Responder struct {
	strategies []Strategy
	analyzer   *Analyzer
	fallback   Resolver
}

// NewResponder compila los lexicos de todos los idiomas del catalogo.
// fallback nil usa el pool local.
func NewResponder(loc locale.Provider, defaultLang string, rnd Rand, fallback Resolver) (*Responder, error) {
	if rnd == nil {
		rnd = NewRand(0)
	}
	lex, err := compileLexicons(loc, defaultLang)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		fallback = NewLocalResolver(loc, rnd)
	}
	base := strategyBase{loc: loc, lex: lex, rnd: rnd}
	return &Responder{
		strategies: []Strategy{
			policyFilter{base},
			arithmeticFilter{base},
			directAnswers{base},
			confessionDetector{base},
			emotionDetector{base},
			MemoryRecall{base},
			topicContinuation{base},
		},
		analyzer: &Analyzer{lex: lex},
		fallback: fallback,
	}, nil
}

// Strategies devuelve los nombres de la cascada en orden.
func (r *Responder) Strategies() []string {
	out := make([]string, 0, len(r.strategies)+1)
	for _, s := range r.strategies {
		out = append(out, s.Name())
	}
	return append(out, StrategyFallback)
}

// Respond construye la entrada y recorre la cascada. history son los turnos
// previos; el texto actual entra en el analisis de contexto pero no en History.
func (r *Responder) Respond(ctx context.Context, text, lang string, history []domain.ConversationTurn, last string, now time.Time) (Result, error) {
	window := make([]domain.ConversationTurn, 0, len(history)+1)
	window = append(window, history...)
	window = append(window, domain.ConversationTurn{Sender: domain.SenderUser, Text: text, Timestamp: now})

	in := Input{
		Text:          text,
		Lower:         strings.ToLower(text),
		Language:      lang,
		History:       history,
		LastUtterance: last,
		Now:           now,
		Analysis:      r.analyzer.Analyze(window, lang),
	}
	for _, s := range r.strategies {
		if res, ok := s.Respond(in); ok {
			return res, nil
		}
	}
	reply, err := r.fallback.Resolve(ctx, in)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: reply, Strategy: StrategyFallback}, nil
}
