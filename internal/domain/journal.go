package domain

import (
	"errors"
	"time"
)

// JournalDate es una fecha de calendario local en formato YYYY-MM-DD.
// El formato ISO permite ordenar lexicograficamente.
type JournalDate string

const journalDateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid journal date")

// DateOf devuelve la fecha de calendario de t en su propia zona horaria.
func DateOf(t time.Time) JournalDate {
	return JournalDate(t.Format(journalDateLayout))
}

// ParseJournalDate valida y normaliza una fecha recibida desde afuera.
func ParseJournalDate(raw string) (JournalDate, error) {
	t, err := time.Parse(journalDateLayout, raw)
	if err != nil {
		return "", ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d JournalDate) String() string {
	return string(d)
}
