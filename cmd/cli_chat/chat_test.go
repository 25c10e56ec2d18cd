package main

import (
	"strings"
	"testing"

	"diary-companion/internal/app"
	"diary-companion/internal/locale"
)

func TestSessionMessagesComeFromCatalogs(t *testing.T) {
	loc, err := locale.Default("en")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	for _, lang := range []string{"en", "fr"} {
		s := &session{app: &app.App{Locale: loc}, lang: lang}
		msgs := map[string]string{
			"chat.help":                 s.text("chat.help", map[string]string{"languages": "en|fr"}),
			"chat.unknown_command":      s.text("chat.unknown_command", map[string]string{"command": "dance"}),
			"chat.option_range":         s.text("chat.option_range", map[string]string{"count": "3"}),
			"chat.unsupported_language": s.text("chat.unsupported_language", map[string]string{"languages": "en, fr"}),
			"journal.invalid_date":      s.text("journal.invalid_date", nil),
			"journal.help":              s.text("journal.help", nil),
		}
		for key, msg := range msgs {
			if msg == key || strings.Contains(msg, "{") {
				t.Fatalf("%s: %s not resolved, got %q", lang, key, msg)
			}
		}
		if !strings.Contains(msgs["chat.unknown_command"], "/dance") || !strings.Contains(msgs["chat.option_range"], "#3") {
			t.Fatalf("%s: parameters not substituted: %v", lang, msgs)
		}
	}
}
