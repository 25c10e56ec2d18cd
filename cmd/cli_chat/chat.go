package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"diary-companion/internal/app"
	"diary-companion/internal/dialogue"
	"diary-companion/internal/domain"
	"diary-companion/internal/locale"
	"diary-companion/internal/service"
)

// session es el estado del cliente de terminal entre lineas.
type session struct {
	app     *app.App
	rl      *readline.Instance
	out     io.Writer
	token   string
	lang    string
	options []dialogue.OptionView
}

func runChat(ctx context.Context, a *app.App) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".diary_companion_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	s := &session{app: a, rl: rl, out: rl.Stdout()}
	for {
		if err := s.authenticate(ctx); err != nil {
			if isExit(err) {
				return nil
			}
			return err
		}
		loggedOut, err := s.loop(ctx)
		if err != nil || !loggedOut {
			return err
		}
	}
}

func isExit(err error) bool {
	return errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF)
}

func (s *session) text(key string, params map[string]string) string {
	return s.app.Locale.Resolve(s.lang, key, params)
}

// authenticate restaura el marcador guardado o pide identificador y PIN.
func (s *session) authenticate(ctx context.Context) error {
	res, err := s.app.Companion.Resume(ctx, "")
	if err == nil {
		s.adopt(ctx, res)
		return nil
	}
	s.lang = s.app.Locale.Fallback()
	if errors.Is(err, service.ErrCorruptedSession) {
		fmt.Fprintln(s.out, s.text("auth.session_expired", nil))
	} else if !errors.Is(err, service.ErrNoSession) {
		return err
	}

	fmt.Fprintln(s.out, s.text("auth.welcome", nil))
	for {
		s.rl.SetPrompt(s.text("auth.identifier_prompt", nil) + ": ")
		identifier, err := s.rl.Readline()
		if err != nil {
			return err
		}
		if strings.TrimSpace(identifier) == "" {
			continue
		}
		secret, err := s.rl.ReadPassword(s.text("auth.secret_prompt", nil) + ": ")
		if err != nil {
			return err
		}

		res, err := s.app.Companion.Login(ctx, identifier, string(secret))
		switch {
		case err == nil:
			s.adopt(ctx, res)
			return nil
		case errors.Is(err, service.ErrMalformedSecret):
			fmt.Fprintln(s.out, s.text("auth.malformed_secret", nil))
		case errors.Is(err, service.ErrRateLimited):
			fmt.Fprintln(s.out, s.text("auth.rate_limited", nil))
		case errors.Is(err, service.ErrInvalidCredentials):
			fmt.Fprintln(s.out, s.text("auth.invalid_credentials", nil))
		default:
			return err
		}
	}
}

func (s *session) adopt(ctx context.Context, res service.LoginResult) {
	s.token = res.Token
	if view, err := s.app.Companion.View(ctx, res.Token); err == nil {
		s.lang = view.State.Language
	}
	s.rl.SetPrompt("> ")
	s.show(res.Reply)
}

func (s *session) show(reply dialogue.Reply) {
	name := s.text("agent_name", nil)
	for _, u := range reply.Utterances {
		fmt.Fprintf(s.out, "%s: %s\n", name, u)
	}
	s.options = reply.Options
	for i, opt := range reply.Options {
		fmt.Fprintf(s.out, "  #%d %s\n", i+1, opt.Label)
	}
}

// loop atiende lineas hasta /quit (false) o /logout (true).
func (s *session) loop(ctx context.Context) (bool, error) {
	for {
		line, err := s.rl.Readline()
		if err != nil {
			if isExit(err) {
				return false, nil
			}
			return false, err
		}
		cmd := parseInput(line)

		var reply dialogue.Reply
		switch cmd.kind {
		case cmdQuit:
			return false, nil
		case cmdText:
			if cmd.arg == "" {
				continue
			}
			reply, err = s.app.Companion.Message(ctx, s.token, cmd.arg)
		case cmdOption:
			if cmd.index < 1 || cmd.index > len(s.options) {
				fmt.Fprintln(s.out, s.text("chat.option_range", map[string]string{"count": strconv.Itoa(len(s.options))}))
				continue
			}
			reply, err = s.app.Companion.Option(ctx, s.token, s.options[cmd.index-1].ID)
		case cmdClear:
			if !s.confirm("chat.clear_confirm") {
				continue
			}
			reply, err = s.app.Companion.ClearHistory(ctx, s.token)
		case cmdLang:
			reply, err = s.app.Companion.SetLanguage(ctx, s.token, cmd.arg)
			if err == nil {
				s.lang = locale.Normalize(cmd.arg)
			}
		case cmdGoals:
			err = printGoals(ctx, s.app, s.token, s.lang, s.out)
			if err == nil {
				continue
			}
		case cmdJournal:
			err = s.journal(ctx)
			if err == nil {
				continue
			}
		case cmdLogout:
			if !s.confirm("chat.logout_confirm") {
				continue
			}
			if err := s.app.Companion.Logout(ctx, s.token); err != nil {
				return false, err
			}
			fmt.Fprintln(s.out, s.text("chat.logged_out", nil))
			return true, nil
		case cmdHelp:
			fmt.Fprintln(s.out, s.text("chat.help", map[string]string{"languages": strings.Join(s.app.Locale.Languages(), "|")}))
			continue
		default:
			fmt.Fprintln(s.out, s.text("chat.unknown_command", map[string]string{"command": cmd.arg}))
			continue
		}

		switch {
		case err == nil:
			s.show(reply)
		case errors.Is(err, service.ErrSessionBusy):
			fmt.Fprintln(s.out, s.text("chat.busy", nil))
		case errors.Is(err, service.ErrUnsupportedLanguage):
			fmt.Fprintln(s.out, s.text("chat.unsupported_language", map[string]string{"languages": strings.Join(s.app.Locale.Languages(), ", ")}))
		case errors.Is(err, service.ErrCorruptedSession):
			fmt.Fprintln(s.out, s.text("auth.session_expired", nil))
			return true, nil
		default:
			return false, err
		}
	}
}

func (s *session) confirm(key string) bool {
	s.rl.SetPrompt(s.text(key, nil) + " [y/N] ")
	defer s.rl.SetPrompt("> ")
	line, err := s.rl.Readline()
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes" || answer == "o" || answer == "oui"
}

// journal pide el PIN otra vez y atiende el diario hasta "close".
func (s *session) journal(ctx context.Context) error {
	fmt.Fprintln(s.out, s.text("journal.unlock_prompt", nil))
	secret, err := s.rl.ReadPassword(s.text("auth.secret_prompt", nil) + ": ")
	if err != nil {
		return nil
	}
	if err := s.app.Companion.OpenJournal(ctx, s.token, string(secret)); err != nil {
		if errors.Is(err, service.ErrIncorrectSecret) {
			fmt.Fprintln(s.out, s.text("journal.incorrect_secret", nil))
			return nil
		}
		return err
	}
	defer func() {
		_ = s.app.Companion.CloseJournal(ctx, s.token)
		s.rl.SetPrompt("> ")
		fmt.Fprintln(s.out, s.text("journal.closed", nil))
	}()

	view, err := s.app.Companion.Journal(ctx, s.token)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.text("journal.title", nil))
	fmt.Fprintln(s.out, s.text("journal.select_date", nil))
	s.rl.SetPrompt("journal> ")
	for {
		line, err := s.rl.Readline()
		if err != nil {
			return nil
		}
		cmd := parseJournalInput(line)
		switch cmd.verb {
		case "":
			continue
		case "close", "/quit":
			return nil
		case "list":
			dates, err := view.ListDatesDescending(ctx)
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintln(s.out, d)
			}
			continue
		}

		date, err := domain.ParseJournalDate(cmd.date)
		if err != nil {
			fmt.Fprintln(s.out, s.text("journal.invalid_date", nil))
			continue
		}
		switch cmd.verb {
		case "read":
			text, err := view.GetEntry(ctx, date)
			if err != nil {
				return err
			}
			if text == "" {
				text = s.text("journal.no_entries", nil)
			}
			fmt.Fprintln(s.out, text)
		case "write":
			if err := view.SetEntry(ctx, date, cmd.text); err != nil {
				return err
			}
			fmt.Fprintln(s.out, s.text("journal.saved", nil))
		case "delete":
			if err := view.SetEntry(ctx, date, ""); err != nil {
				return err
			}
			fmt.Fprintln(s.out, s.text("journal.deleted", nil))
		default:
			fmt.Fprintln(s.out, s.text("journal.help", nil))
		}
	}
}

func printGoals(ctx context.Context, a *app.App, token, lang string, out io.Writer) error {
	goals, err := a.Companion.Goals(ctx, token)
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		fmt.Fprintln(out, a.Locale.Resolve(lang, "goal.empty", nil))
		return nil
	}
	fmt.Fprintln(out, a.Locale.Resolve(lang, "goal.list_header", nil))
	for i, g := range goals {
		fmt.Fprintln(out, a.Locale.Resolve(lang, "goal.item", map[string]string{
			"index":  strconv.Itoa(i + 1),
			"name":   g.Name,
			"status": a.Locale.Resolve(lang, "goal.status."+string(g.Status), nil),
			"date":   domain.DateOf(g.DateAdded).String(),
		}))
	}
	return nil
}
