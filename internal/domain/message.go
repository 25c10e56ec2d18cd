package domain

import "time"

// Sender identifica quien emitio un turno de conversacion.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Valid indica si el emisor es uno de los conocidos.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAgent
}

// ConversationTurn es un mensaje intercambiado en el chat libre.
type ConversationTurn struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DayBucket agrupa turnos por fecha de calendario local.
type DayBucket struct {
	Date  JournalDate        `json:"date"`
	Turns []ConversationTurn `json:"turns"`
}
