package dialogue

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"diary-companion/internal/domain"
)

// similarityThreshold es el minimo Jaro-Winkler para aceptar una palabra
// parecida ("trabajo" / "trabajos") como mencion del mismo tema.
const similarityThreshold = 0.92

const minKeywordRunes = 3

// MemoryRecall busca en el historial algo que el usuario pide recordar.
type MemoryRecall struct{ strategyBase }

func (MemoryRecall) Name() string { return StrategyRecall }

func (s MemoryRecall) Respond(in Input) (Result, bool) {
	lex := s.lex.For(in.Language)
	subject, ok := recallSubject(lex, in.Text)
	if !ok {
		return Result{}, false
	}
	result := func(key string, params map[string]string) (Result, bool) {
		return Result{Text: s.text(in, key, params), Strategy: StrategyRecall}, true
	}

	lowerSubject := strings.ToLower(subject)
	if containsAny(lowerSubject, lex.secretMarkers) {
		if secret, found := findSecret(lex, in.History); found {
			return result("recall.secret", map[string]string{"secret": secret})
		}
		return result("recall.vague", nil)
	}
	if text, found := findMention(lex, in.History, lowerSubject); found {
		return result("recall.topic", map[string]string{"text": text})
	}
	return result("recall.vague", nil)
}

// recallSubject devuelve lo que el usuario pide recordar, o false si el
// texto no es un pedido de recuerdo.
func recallSubject(lex *lexicon, text string) (string, bool) {
	for _, re := range lex.recallRequests {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		subject := ""
		if len(m) > 1 {
			subject = strings.TrimRight(strings.TrimSpace(m[1]), "?!. ")
		}
		return subject, true
	}
	return "", false
}

// findSecret recorre los turnos del usuario del mas nuevo al mas viejo.
func findSecret(lex *lexicon, history []domain.ConversationTurn) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Sender != domain.SenderUser {
			continue
		}
		for _, re := range lex.secretPatterns {
			if m := re.FindStringSubmatch(turn.Text); len(m) > 1 {
				if secret := strings.TrimRight(strings.TrimSpace(m[1]), "!. "); secret != "" {
					return secret, true
				}
			}
		}
	}
	return "", false
}

func findMention(lex *lexicon, history []domain.ConversationTurn, subject string) (string, bool) {
	keywords := recallKeywords(lex, subject)
	if subject == "" || len(keywords) == 0 {
		return "", false
	}
	for i := len(history) - 1; i >= 0; i-- {
		turn := history[i]
		if turn.Sender != domain.SenderUser || lex.isRecallRequest(turn.Text) {
			continue
		}
		lower := strings.ToLower(turn.Text)
		if strings.Contains(lower, subject) || mentionsAll(tokenize(lower), keywords) {
			return turn.Text, true
		}
	}
	return "", false
}

func recallKeywords(lex *lexicon, subject string) []string {
	var out []string
	for _, tok := range tokenize(subject) {
		if lex.fillers[tok] || utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func mentionsAll(tokens, keywords []string) bool {
	for _, kw := range keywords {
		if !mentions(tokens, kw) {
			return false
		}
	}
	return true
}

func mentions(tokens []string, keyword string) bool {
	for _, tok := range tokens {
		if tok == keyword || matchr.JaroWinkler(tok, keyword, false) >= similarityThreshold {
			return true
		}
	}
	return false
}
