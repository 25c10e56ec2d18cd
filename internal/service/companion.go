package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"diary-companion/internal/dialogue"
	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
	"diary-companion/internal/repository"
	"diary-companion/internal/speech"
)

var (
	ErrCompanionNotConfigured = errors.New("companion not configured")
	ErrNoSession              = errors.New("no saved session")
	ErrJournalLocked          = errors.New("journal locked")
	ErrJournalForeground      = errors.New("journal is in the foreground")
	ErrUnsupportedLanguage    = errors.New("unsupported language")
	ErrSpeechUnavailable      = errors.New("speech transcription not configured")
)

// CompanionDeps agrupa los colaboradores de Companion.
type CompanionDeps struct {
	Auth         *AuthService
	Engine       *dialogue.Engine
	Conversation *ConversationService
	Journal      *JournalService
	Goals        *GoalService
	Preferences  repository.PreferenceRepository
	Locale       locale.Provider
	Transcriber  speech.Transcriber
	Registry     *SessionRegistry
	DefaultLang  string
}

// Companion orquesta las operaciones que ve el usuario sobre una sesion abierta.
// Es lo que consumen tanto la API HTTP como el cliente de terminal.
type Companion struct {
	logger       *zap.Logger
	auth         *AuthService
	engine       *dialogue.Engine
	conversation *ConversationService
	journal      *JournalService
	goals        *GoalService
	prefs        repository.PreferenceRepository
	loc          locale.Provider
	transcriber  speech.Transcriber
	registry     *SessionRegistry
	defaultLang  string
	now          func() time.Time
}

func NewCompanion(deps CompanionDeps, logger *zap.Logger) *Companion {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = NewSessionRegistry()
	}
	return &Companion{
		logger:       logger,
		auth:         deps.Auth,
		engine:       deps.Engine,
		conversation: deps.Conversation,
		journal:      deps.Journal,
		goals:        deps.Goals,
		prefs:        deps.Preferences,
		loc:          deps.Locale,
		transcriber:  deps.Transcriber,
		registry:     registry,
		defaultLang:  deps.DefaultLang,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult es la respuesta de un login o de una sesion restaurada.
type LoginResult struct {
	Token   string         `json:"token"`
	Account domain.Account `json:"account"`
	IsNew   bool           `json:"is_new"`
	Reply   dialogue.Reply `json:"reply"`
}

// SessionView es una instantanea de la sesion para mostrarla de nuevo.
type SessionView struct {
	Account     domain.Account        `json:"account"`
	State       domain.SessionState   `json:"state"`
	Options     []dialogue.OptionView `json:"options"`
	JournalOpen bool                  `json:"journal_open"`
}

// SpeechReply incluye la transcripcion reconocida, vacia si no hubo voz.
type SpeechReply struct {
	Transcript string `json:"transcript"`
	dialogue.Reply
}

func (c *Companion) ready() error {
	if c == nil || c.auth == nil || c.engine == nil || c.conversation == nil || c.prefs == nil || c.loc == nil {
		return ErrCompanionNotConfigured
	}
	return nil
}

// Login autentica, abre la sesion, guarda el marcador y saluda.
func (c *Companion) Login(ctx context.Context, identifier, secret string) (LoginResult, error) {
	if err := c.ready(); err != nil {
		return LoginResult{}, err
	}
	res, err := c.auth.Authenticate(ctx, identifier, secret)
	if err != nil {
		return LoginResult{}, err
	}
	if err := c.prefs.SetCurrentSession(ctx, res.Token); err != nil {
		c.logger.Warn("persist session marker failed", zap.String("account_id", res.Account.Identifier), zap.Error(err))
	}
	sess := c.registry.put(newChatSession(res.Token, res.Account, c.language(ctx)))
	c.logger.Info("session opened",
		zap.String("account_id", res.Account.Identifier),
		zap.Bool("new_account", res.IsNew),
		zap.Int("active_sessions", c.registry.Len()),
	)
	return LoginResult{
		Token:   res.Token,
		Account: res.Account,
		IsNew:   res.IsNew,
		Reply:   c.greet(sess, res.Greeting),
	}, nil
}

// Resume restaura la sesion del token dado o, si esta vacio, la del marcador
// guardado. Un marcador corrupto se borra y se devuelve ErrCorruptedSession.
func (c *Companion) Resume(ctx context.Context, token string) (LoginResult, error) {
	if err := c.ready(); err != nil {
		return LoginResult{}, err
	}
	fromMarker := token == ""
	if fromMarker {
		saved, err := c.prefs.CurrentSession(ctx)
		if err != nil {
			return LoginResult{}, err
		}
		if saved == "" {
			return LoginResult{}, ErrNoSession
		}
		token = saved
	}
	account, err := c.auth.RestoreSession(ctx, token)
	if errors.Is(err, ErrCorruptedSession) {
		c.logger.Warn("corrupted session marker", zap.Bool("from_marker", fromMarker))
		c.registry.Remove(token)
		if fromMarker {
			if clearErr := c.prefs.ClearCurrentSession(ctx); clearErr != nil {
				c.logger.Warn("clear session marker failed", zap.Error(clearErr))
			}
		}
		return LoginResult{}, err
	}
	if err != nil {
		return LoginResult{}, err
	}
	sess := c.registry.put(newChatSession(token, account, c.language(ctx)))
	kind := SelectGreeting(false, account.LastLoginAt, c.now())
	return LoginResult{Token: token, Account: account, Reply: c.greet(sess, kind)}, nil
}

func (c *Companion) greet(sess *ChatSession, kind domain.GreetingKind) dialogue.Reply {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	st, reply := c.engine.Greet(sess.state, sess.account.Identifier, kind)
	sess.state = st
	return reply
}

// session busca la sesion abierta; si el proceso se reinicio la reconstruye
// a partir del token.
func (c *Companion) session(ctx context.Context, token string) (*ChatSession, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if sess, ok := c.registry.Get(token); ok {
		return sess, nil
	}
	account, err := c.auth.RestoreSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.registry.put(newChatSession(token, account, c.language(ctx))), nil
}

// chat toma la sesion para una operacion de dialogo en primer plano.
func (c *Companion) chat(ctx context.Context, token string) (*ChatSession, func(), error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	release, err := sess.acquire()
	if err != nil {
		return nil, nil, err
	}
	if sess.state.Foreground == domain.ForegroundJournal {
		release()
		return nil, nil, ErrJournalForeground
	}
	return sess, release, nil
}

func (c *Companion) View(ctx context.Context, token string) (SessionView, error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return SessionView{}, err
	}
	release, err := sess.acquire()
	if err != nil {
		return SessionView{}, err
	}
	defer release()
	return SessionView{
		Account:     sess.account,
		State:       sess.state,
		Options:     c.engine.Options(sess.state),
		JournalOpen: sess.journal != nil,
	}, nil
}

func (c *Companion) Message(ctx context.Context, token, text string) (dialogue.Reply, error) {
	sess, release, err := c.chat(ctx, token)
	if err != nil {
		return dialogue.Reply{}, err
	}
	defer release()
	return c.submit(ctx, sess, text)
}

func (c *Companion) submit(ctx context.Context, sess *ChatSession, text string) (dialogue.Reply, error) {
	st, reply, err := c.engine.SubmitFreeText(ctx, sess.state, text)
	if err != nil {
		return dialogue.Reply{}, err
	}
	sess.state = st
	return reply, nil
}

func (c *Companion) Option(ctx context.Context, token, optionID string) (dialogue.Reply, error) {
	sess, release, err := c.chat(ctx, token)
	if err != nil {
		return dialogue.Reply{}, err
	}
	defer release()
	st, reply, err := c.engine.SelectOption(ctx, sess.state, optionID)
	if err != nil {
		return dialogue.Reply{}, err
	}
	sess.state = st
	return reply, nil
}

// Speech transcribe el audio y lo trata como texto libre. Sin voz o sin
// audio no pasa nada; cualquier otro fallo produce una sola frase de disculpa.
func (c *Companion) Speech(ctx context.Context, token string, audio io.Reader) (SpeechReply, error) {
	if c != nil && c.transcriber == nil {
		return SpeechReply{}, ErrSpeechUnavailable
	}
	sess, release, err := c.chat(ctx, token)
	if err != nil {
		return SpeechReply{}, err
	}
	defer release()

	text, err := sess.capture.Run(ctx, c.transcriber, audio, sess.state.Language)
	switch {
	case errors.Is(err, speech.ErrCaptureActive):
		return SpeechReply{}, ErrSessionBusy
	case errors.Is(err, speech.ErrNoSpeech), errors.Is(err, speech.ErrEmptyAudio):
		return SpeechReply{Reply: c.idleReply(sess)}, nil
	case err != nil:
		c.logger.Warn("speech recognition failed", zap.String("account_id", sess.account.Identifier), zap.Error(err))
		msg := c.loc.Resolve(sess.state.Language, "speech.error", nil)
		sess.state.LastUtterance = msg
		reply := c.idleReply(sess)
		reply.Utterances = []string{msg}
		return SpeechReply{Reply: reply}, nil
	}
	reply, err := c.submit(ctx, sess, text)
	if err != nil {
		return SpeechReply{}, err
	}
	return SpeechReply{Transcript: text, Reply: reply}, nil
}

func (c *Companion) idleReply(sess *ChatSession) dialogue.Reply {
	return dialogue.Reply{
		Utterances: []string{},
		Options:    c.engine.Options(sess.state),
		Mode:       sess.state.Mode,
		NodeID:     sess.state.NodeID,
	}
}

// ClearHistory borra la conversacion ya confirmada por el usuario.
func (c *Companion) ClearHistory(ctx context.Context, token string) (dialogue.Reply, error) {
	sess, release, err := c.chat(ctx, token)
	if err != nil {
		return dialogue.Reply{}, err
	}
	defer release()
	if err := c.conversation.Clear(ctx, sess.account.Identifier); err != nil {
		return dialogue.Reply{}, err
	}
	return c.menuWith(sess, "chat.cleared"), nil
}

func (c *Companion) menuWith(sess *ChatSession, key string) dialogue.Reply {
	notice := c.loc.Resolve(sess.state.Language, key, nil)
	st, reply := c.engine.ShowMenu(sess.state)
	sess.state = st
	reply.Utterances = append([]string{notice}, reply.Utterances...)
	return reply
}

func (c *Companion) History(ctx context.Context, token string) ([]domain.ConversationTurn, error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.conversation.History(ctx, sess.account.Identifier)
}

func (c *Companion) HistoryByDay(ctx context.Context, token string, loc *time.Location) ([]domain.DayBucket, error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.conversation.ByDate(ctx, sess.account.Identifier, loc)
}

// SetLanguage guarda el idioma de la interfaz y vuelve a mostrar el menu.
func (c *Companion) SetLanguage(ctx context.Context, token, lang string) (dialogue.Reply, error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return dialogue.Reply{}, err
	}
	lang = locale.Normalize(lang)
	if !c.supports(lang) {
		return dialogue.Reply{}, ErrUnsupportedLanguage
	}
	release, err := sess.acquire()
	if err != nil {
		return dialogue.Reply{}, err
	}
	defer release()
	if err := c.prefs.SetLanguage(ctx, lang); err != nil {
		return dialogue.Reply{}, err
	}
	sess.state.Language = lang
	return c.menuWith(sess, "language.changed"), nil
}

func (c *Companion) supports(lang string) bool {
	for _, l := range c.loc.Languages() {
		if l == lang {
			return true
		}
	}
	return false
}

// OpenJournal pide otra vez el secreto y pone el diario en primer plano.
func (c *Companion) OpenJournal(ctx context.Context, token, secret string) error {
	if c != nil && c.journal == nil {
		return ErrJournalNotConfigured
	}
	sess, err := c.session(ctx, token)
	if err != nil {
		return err
	}
	release, err := sess.acquire()
	if err != nil {
		return err
	}
	defer release()
	view, err := c.journal.Unlock(ctx, sess.account.Identifier, secret)
	if err != nil {
		return err
	}
	sess.journal = view
	sess.state.Foreground = domain.ForegroundJournal
	return nil
}

// CloseJournal devuelve el chat al primer plano. Cerrar un diario cerrado no hace nada.
func (c *Companion) CloseJournal(ctx context.Context, token string) error {
	sess, err := c.session(ctx, token)
	if err != nil {
		return err
	}
	release, err := sess.acquire()
	if err != nil {
		return err
	}
	defer release()
	sess.journal = nil
	sess.state.Foreground = domain.ForegroundChat
	return nil
}

// Journal devuelve la vista desbloqueada, o ErrJournalLocked.
func (c *Companion) Journal(ctx context.Context, token string) (*JournalView, error) {
	sess, err := c.session(ctx, token)
	if err != nil {
		return nil, err
	}
	release, err := sess.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if sess.journal == nil {
		return nil, ErrJournalLocked
	}
	return sess.journal, nil
}

func (c *Companion) Goals(ctx context.Context, token string) ([]domain.Goal, error) {
	if c != nil && c.goals == nil {
		return nil, ErrGoalServiceNotConfigured
	}
	sess, err := c.session(ctx, token)
	if err != nil {
		return nil, err
	}
	return c.goals.ListGoals(ctx, sess.account.Identifier)
}

// Logout revoca el token, borra el marcador si es el de esta sesion y olvida
// el estado efimero. Los datos de la cuenta quedan intactos.
func (c *Companion) Logout(ctx context.Context, token string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.auth.Logout(ctx, token); err != nil {
		return err
	}
	c.registry.Remove(token)
	c.logger.Info("session closed", zap.Int("active_sessions", c.registry.Len()))
	saved, err := c.prefs.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(saved) == token {
		return c.prefs.ClearCurrentSession(ctx)
	}
	return nil
}

func (c *Companion) language(ctx context.Context) string {
	lang, err := c.prefs.Language(ctx)
	if err != nil {
		c.logger.Warn("read language preference failed", zap.Error(err))
	}
	if lang = locale.Normalize(lang); lang != "" && c.supports(lang) {
		return lang
	}
	return c.defaultLang
}
