package vote

import (
	"errors"
	"strings"
)

const MaxOptionLen = 256

var (
	ErrOptionInvalid = errors.New("invalid option")
	ErrOptionExists  = errors.New("option already exists")
)

// Options is the server's ordered list of votable commands.
type Options struct {
	items []string
}

// Add appends cmd unless an equal option (ignoring case) is present.
func (o *Options) Add(cmd string) error {
	if !validLine(cmd) {
		return ErrOptionInvalid
	}
	if _, ok := o.Find(cmd); ok {
		return ErrOptionExists
	}
	o.items = append(o.items, cmd)
	return nil
}

// Find returns the stored option matching value case-insensitively.
func (o *Options) Find(value string) (string, bool) {
	for _, it := range o.items {
		if strings.EqualFold(it, value) {
			return it, true
		}
	}
	return "", false
}

func (o *Options) All() []string {
	out := make([]string, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Options) Len() int { return len(o.items) }

func (o *Options) Clear() { o.items = nil }

func validLine(s string) bool {
	if strings.TrimSpace(s) == "" || len(s) > MaxOptionLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 32 {
			return false
		}
	}
	return true
}
