package domain

import "time"

// Account es la identidad local de un usuario del diario.
type Account struct {
	Identifier  string    `json:"identifier"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// AccountRecord agrupa todo lo persistido para una cuenta bajo una sola clave.
type AccountRecord struct {
	Account      Account                `json:"account"`
	SecretHash   string                 `json:"secret_hash"`
	Conversation []ConversationTurn     `json:"conversation"`
	Journal      map[JournalDate]string `json:"journal"`
	Goals        []Goal                 `json:"goals"`
}

// NewAccountRecord crea un registro vacio listo para persistir.
func NewAccountRecord(identifier, secretHash string, now time.Time) AccountRecord {
	return AccountRecord{
		Account: Account{
			Identifier:  identifier,
			CreatedAt:   now,
			LastLoginAt: now,
		},
		SecretHash:   secretHash,
		Conversation: []ConversationTurn{},
		Journal:      map[JournalDate]string{},
		Goals:        []Goal{},
	}
}

// Normalize garantiza colecciones no nulas tras decodificar registros viejos.
func (r *AccountRecord) Normalize() {
	if r.Conversation == nil {
		r.Conversation = []ConversationTurn{}
	}
	if r.Journal == nil {
		r.Journal = map[JournalDate]string{}
	}
	if r.Goals == nil {
		r.Goals = []Goal{}
	}
}
