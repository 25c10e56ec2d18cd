package main

import (
	"strconv"
	"strings"
)

type commandKind int

const (
	cmdText commandKind = iota
	cmdOption
	cmdQuit
	cmdLogout
	cmdClear
	cmdLang
	cmdGoals
	cmdJournal
	cmdHelp
	cmdUnknown
)

type command struct {
	kind  commandKind
	arg   string
	index int
}

// parseInput distingue texto libre, "#n" para elegir una opcion y comandos "/x".
func parseInput(line string) command {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		if n, err := strconv.Atoi(strings.TrimSpace(line[1:])); err == nil {
			return command{kind: cmdOption, index: n}
		}
		return command{kind: cmdText, arg: line}
	}
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdText, arg: line}
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "quit", "exit":
		return command{kind: cmdQuit}
	case "logout":
		return command{kind: cmdLogout}
	case "clear":
		return command{kind: cmdClear}
	case "lang":
		return command{kind: cmdLang, arg: arg}
	case "goals":
		return command{kind: cmdGoals}
	case "journal":
		return command{kind: cmdJournal}
	case "help":
		return command{kind: cmdHelp}
	default:
		return command{kind: cmdUnknown, arg: name}
	}
}

type journalCommand struct {
	verb string
	date string
	text string
}

// parseJournalInput reconoce "list", "read <fecha>", "write <fecha> <texto>",
// "delete <fecha>" y "close".
func parseJournalInput(line string) journalCommand {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return journalCommand{}
	}
	cmd := journalCommand{verb: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		cmd.date = fields[1]
	}
	if cmd.verb == "write" && len(fields) > 2 {
		_, rest, _ := strings.Cut(strings.TrimSpace(line), fields[1])
		cmd.text = strings.TrimSpace(rest)
	}
	return cmd
}
