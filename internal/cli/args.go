// Package cli turns raw arguments into a dispatched command: it tokenizes
// flags, reads request bodies and routes command words to handlers.
package cli

import (
	"strconv"
	"strings"
)

// Value is a parsed flag. Bare flags (no value) have Bare set.
type Value struct {
	Text string
	Bare bool
}

// Flags maps flag names, without the leading dashes, to their values. Names
// are not validated at parse time.
type Flags map[string]Value

// Parse splits args into positional words and flags. "--key=value" splits on
// the first "="; "--key value" consumes the next token unless it starts with
// "-", in which case the flag is bare.
func Parse(args []string) (positional []string, flags Flags) {
	positional = []string{}
	flags = Flags{}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}

		name := arg[2:]
		if key, value, ok := strings.Cut(name, "="); ok {
			flags[key] = Value{Text: value}
			continue
		}

		if i+1 < len(args) && args[i+1] != "" && !strings.HasPrefix(args[i+1], "-") {
			flags[name] = Value{Text: args[i+1]}
			i++
			continue
		}
		flags[name] = Value{Bare: true}
	}

	return positional, flags
}

// Has reports whether the flag was given at all.
func (f Flags) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// String returns the flag text, trimmed. A bare flag reads as "true".
func (f Flags) String(name string) string {
	v, ok := f[name]
	if !ok {
		return ""
	}
	if v.Bare {
		return "true"
	}
	return strings.TrimSpace(v.Text)
}

// Bool reports whether a switch-style flag is on. Bare flags are on; values
// are parsed with strconv.ParseBool and any other non-empty text counts as on.
func (f Flags) Bool(name string) bool {
	v, ok := f[name]
	if !ok {
		return false
	}
	if v.Bare {
		return true
	}
	text := strings.TrimSpace(v.Text)
	if b, err := strconv.ParseBool(text); err == nil {
		return b
	}
	return text != ""
}
