package dialogue

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
)

// ContextWindow es la cantidad de turnos recientes que mira el analizador.
const ContextWindow = 20

// minTopicRunes descarta palabras cortas al buscar el tema principal.
const minTopicRunes = 4

var (
	emotionCategories  = []string{"happy", "sad", "angry", "anxious", "tired"}
	negativeCategories = map[string]bool{"sad": true, "angry": true, "anxious": true, "tired": true}
	topicCategories    = []string{"relationships", "work", "family", "studies"}
	directEntryIDs     = []string{"time", "date", "identity", "creator", "joke", "compliment", "thanks", "how_are_you", "main_menu"}
)

// lexicon son las listas de palabras y patrones de un idioma, compiladas una vez.
type lexicon struct {
	emotions       map[string]*regexp.Regexp
	topics         map[string]map[string]bool
	stopwords      map[string]bool
	policy         *regexp.Regexp
	confession     []string
	direct         map[string][]string
	recallRequests []*regexp.Regexp
	secretPatterns []*regexp.Regexp
	secretMarkers  []string
	fillers        map[string]bool
}

type lexicons struct {
	byLang   map[string]*lexicon
	fallback string
}

func compileLexicons(loc locale.Provider, fallback string) (*lexicons, error) {
	lx := &lexicons{byLang: make(map[string]*lexicon), fallback: locale.Normalize(fallback)}
	for _, lang := range loc.Languages() {
		l, err := compileLexicon(loc, lang)
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", lang, err)
		}
		lx.byLang[lang] = l
	}
	if _, ok := lx.byLang[lx.fallback]; !ok {
		return nil, fmt.Errorf("lexicon: no catalog for fallback language %q", lx.fallback)
	}
	return lx, nil
}

func (l *lexicons) For(lang string) *lexicon {
	if lex, ok := l.byLang[locale.Normalize(lang)]; ok {
		return lex
	}
	return l.byLang[l.fallback]
}

func compileLexicon(loc locale.Provider, lang string) (*lexicon, error) {
	lex := &lexicon{
		emotions:      make(map[string]*regexp.Regexp, len(emotionCategories)),
		topics:        make(map[string]map[string]bool, len(topicCategories)),
		stopwords:     wordSet(loc.Pool(lang, "analysis.stopwords")),
		confession:    lowerAll(loc.Pool(lang, "confession.triggers")),
		direct:        make(map[string][]string, len(directEntryIDs)),
		secretMarkers: lowerAll(loc.Pool(lang, "recall.secret_markers")),
		fillers:       wordSet(loc.Pool(lang, "recall.fillers")),
	}
	policy, err := wordRegexp(loc.Pool(lang, "policy.keywords"))
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	lex.policy = policy
	for _, cat := range emotionCategories {
		re, err := wordRegexp(loc.Pool(lang, "emotion."+cat+".words"))
		if err != nil {
			return nil, fmt.Errorf("emotion %s: %w", cat, err)
		}
		lex.emotions[cat] = re
	}
	for _, cat := range topicCategories {
		lex.topics[cat] = wordSet(loc.Pool(lang, "topic."+cat+".words"))
	}
	for _, id := range directEntryIDs {
		lex.direct[id] = lowerAll(loc.Pool(lang, "direct."+id+".triggers"))
	}
	if lex.recallRequests, err = compileAll(loc.Pool(lang, "recall.request_patterns")); err != nil {
		return nil, fmt.Errorf("recall request: %w", err)
	}
	if lex.secretPatterns, err = compileAll(loc.Pool(lang, "recall.secret_patterns")); err != nil {
		return nil, fmt.Errorf("recall secret: %w", err)
	}
	return lex, nil
}

// wordRegexp arma un patron que reconoce palabras completas; una entrada
// terminada en * acepta cualquier sufijo ("depress*" cubre "depressed").
func wordRegexp(words []string) (*regexp.Regexp, error) {
	alts := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if strings.HasSuffix(w, "*") {
			alts = append(alts, regexp.QuoteMeta(strings.TrimSuffix(w, "*"))+`\p{L}*`)
			continue
		}
		alts = append(alts, regexp.QuoteMeta(w))
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("empty word list")
	}
	return regexp.Compile(`(?i)(?:^|[^\p{L}])(?:` + strings.Join(alts, "|") + `)(?:$|[^\p{L}])`)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func wordSet(in []string) map[string]bool {
	out := make(map[string]bool, len(in))
	for _, s := range lowerAll(in) {
		out[s] = true
	}
	return out
}

// tokenize separa en palabras de letras, en minusculas.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// isRecallRequest indica si el texto pide recordar algo dicho antes.
func (l *lexicon) isRecallRequest(text string) bool {
	for _, re := range l.recallRequests {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Analysis es la vista del contexto reciente que usan las estrategias.
type Analysis struct {
	MainTopic string
	Tone      int
	Negative  bool
	TurnCount int
}

// Analyzer calcula el tema principal y el tono de la ventana reciente.
// No guarda estado: cada llamada recalcula desde el historial recibido.
type Analyzer struct {
	lex *lexicons
}

func (a *Analyzer) Analyze(history []domain.ConversationTurn, lang string) Analysis {
	lex := a.lex.For(lang)
	out := Analysis{TurnCount: len(history)}

	window := history
	if len(window) > ContextWindow {
		window = window[len(window)-ContextWindow:]
	}

	counts := make(map[string]int)
	var order []string
	for _, turn := range window {
		if turn.Sender != domain.SenderUser {
			continue
		}
		for cat, re := range lex.emotions {
			if !re.MatchString(turn.Text) {
				continue
			}
			if negativeCategories[cat] {
				out.Tone--
			} else {
				out.Tone++
			}
		}
		for _, tok := range tokenize(turn.Text) {
			if utf8.RuneCountInString(tok) < minTopicRunes || lex.stopwords[tok] {
				continue
			}
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	best := 0
	for _, tok := range order {
		if counts[tok] > best {
			best = counts[tok]
			out.MainTopic = tok
		}
	}
	out.Negative = out.Tone < 0
	return out
}

// topicCategory devuelve la categoria conocida a la que pertenece la palabra.
func (l *lexicon) topicCategory(word string) (string, bool) {
	for _, cat := range topicCategories {
		if l.topics[cat][word] {
			return cat, true
		}
	}
	return "", false
}
