// Package admin is the server console: a registry of named commands and a
// line executor. Passed votes, startup commands and the admin endpoint all
// run through it.
package admin

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgs        = errors.New("bad arguments")
)

// Game is the part of the game core the console drives.
type Game interface {
	Tune(name string, value float64) error
	TuneReset()
	TuneDump() []string
	ChangeMap(name string)
	Restart(warmup int)
	Broadcast(text string)
	Say(text string)
	SetTeam(slot, team int)
	SetTeamAll(team int)
	AddVoteOption(line string) error
	ClearVoteOptions()
	ForceVote(result string)
	KillPlayer(slot int)
	SetMotd(text string)
}

// Host owns connections and the ban list.
type Host interface {
	Kick(slot int, reason string) error
	Ban(addr string, minutes int, reason string) error
	Unban(addr string) error
}

// Race moves characters around and freezes the world.
type Race interface {
	Teleport(slot, to int) error
	TeleportTo(slot, x, y int) error
	Position(slot int) (x, y int, err error)
	Paused() bool
	SetPaused(p bool)
}

// Args are the parsed arguments of one command line.
type Args struct {
	vals []string
}

func (a Args) Len() int { return len(a.vals) }

func (a Args) String(i int) string {
	if i >= len(a.vals) {
		return ""
	}
	return a.vals[i]
}

func (a Args) Int(i int) int {
	n, _ := strconv.Atoi(a.String(i))
	return n
}

func (a Args) Float(i int) float64 {
	f, _ := strconv.ParseFloat(a.String(i), 64)
	return f
}

// Handler runs one command and returns the lines it printed.
type Handler func(args Args) ([]string, error)

type command struct {
	params string
	help   string
	run    Handler
}

type Console struct {
	cmds   map[string]command
	logger *log.Logger
}

func New(logger *log.Logger) *Console {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Console{cmds: map[string]command{}, logger: logger}
}

// Register adds a command. params describes the arguments: 's' a word,
// 'i' an integer, 'f' a number, 'r' the rest of the line; arguments after
// '?' are optional.
func (c *Console) Register(name, params, help string, run Handler) {
	c.cmds[name] = command{params: params, help: help, run: run}
}

// Commands lists the registered command names in order.
func (c *Console) Commands() []string {
	out := make([]string, 0, len(c.cmds))
	for name := range c.cmds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Execute runs one line, logging whatever it prints.
func (c *Console) Execute(line string) error {
	out, err := c.Run(line)
	for _, l := range out {
		c.logger.Printf("%s", l)
	}
	return err
}

// Run executes one line and returns its output.
func (c *Console) Run(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	name, rest, _ := strings.Cut(line, " ")
	cmd, ok := c.cmds[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	args, err := parseArgs(rest, cmd.params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w (usage: %s %s)", name, err, name, cmd.params)
	}
	return cmd.run(args)
}

func parseArgs(s, params string) (Args, error) {
	var a Args
	optional := false
	for _, p := range params {
		if p == '?' {
			optional = true
			continue
		}
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			if optional {
				break
			}
			return a, ErrBadArgs
		}
		var tok string
		if p == 'r' {
			tok, s = s, ""
		} else {
			tok, s = nextToken(s)
		}
		switch p {
		case 'i':
			if _, err := strconv.Atoi(tok); err != nil {
				return a, fmt.Errorf("%w: %q is not an integer", ErrBadArgs, tok)
			}
		case 'f':
			if _, err := strconv.ParseFloat(tok, 64); err != nil {
				return a, fmt.Errorf("%w: %q is not a number", ErrBadArgs, tok)
			}
		}
		a.vals = append(a.vals, tok)
	}
	return a, nil
}

// nextToken splits off one word, honouring double quotes.
func nextToken(s string) (string, string) {
	if strings.HasPrefix(s, `"`) {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : end+1], s[end+2:]
		}
		return s[1:], ""
	}
	tok, rest, _ := strings.Cut(s, " ")
	return tok, rest
}
