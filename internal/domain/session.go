package domain

import "errors"

// DialogueMode es el estado principal del motor de dialogo.
type DialogueMode string

const (
	ModeIdle          DialogueMode = "idle"
	ModeGuided        DialogueMode = "guided"
	ModeAwaitingInput DialogueMode = "awaiting_input"
)

// Foreground indica que modo de interaccion recibe la entrada del usuario.
type Foreground string

const (
	ForegroundChat    Foreground = "chat"
	ForegroundJournal Foreground = "journal"
)

// SessionState es el estado efimero de una sesion; no se persiste.
type SessionState struct {
	AccountID     string       `json:"account_id"`
	Mode          DialogueMode `json:"mode"`
	NodeID        string       `json:"node_id,omitempty"`
	Step          int          `json:"step"`
	LastUtterance string       `json:"-"`
	Language      string       `json:"language"`
	Foreground    Foreground   `json:"foreground"`
}

// NewSessionState arranca una sesion en Idle con el chat en primer plano.
func NewSessionState(accountID, language string) SessionState {
	return SessionState{
		AccountID:  accountID,
		Mode:       ModeIdle,
		Language:   language,
		Foreground: ForegroundChat,
	}
}

// ErrIndexOutOfRange se comparte entre el motor y el gestor de metas.
var ErrIndexOutOfRange = errors.New("index out of range")

// GreetingKind elige el saludo al iniciar sesion.
type GreetingKind string

const (
	GreetingFirst       GreetingKind = "first"
	GreetingShortReturn GreetingKind = "short_return"
	GreetingLongReturn  GreetingKind = "long_return"
)
