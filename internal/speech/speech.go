// Package speech convierte audio dictado en texto para el motor de dialogo.
package speech

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
)

var (
	// ErrNoSpeech indica que el audio no contenia voz. No es un error para el usuario.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrCaptureActive se devuelve si ya hay una captura en curso en la sesion.
	ErrCaptureActive = errors.New("speech capture already active")
	// ErrEmptyAudio: la captura termino sin bytes. Se trata igual que ErrNoSpeech.
	ErrEmptyAudio = errors.New("empty audio")
)

// Transcriber produce una unica transcripcion final por captura.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, lang string) (string, error)
}

// Capture permite como maximo una captura activa a la vez.
type Capture struct {
	active atomic.Bool
}

// Begin marca la captura como activa. release debe llamarse al terminar.
func (c *Capture) Begin() (release func(), err error) {
	if !c.active.CompareAndSwap(false, true) {
		return nil, ErrCaptureActive
	}
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			c.active.Store(false)
		}
	}, nil
}

func (c *Capture) Active() bool {
	return c.active.Load()
}

// Run transcribe audio dentro de la captura. Una transcripcion vacia se
// reporta como ErrNoSpeech.
func (c *Capture) Run(ctx context.Context, t Transcriber, audio io.Reader, lang string) (string, error) {
	release, err := c.Begin()
	if err != nil {
		return "", err
	}
	defer release()

	text, err := t.Transcribe(ctx, audio, lang)
	if err != nil {
		return "", err
	}
	if text = strings.TrimSpace(text); text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
