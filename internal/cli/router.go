package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"gapi/internal/output"
)

// Handler runs one command. It returns the success envelope or an error; it
// never writes to the output stream itself.
type Handler func(ctx context.Context, flags Flags) (*output.Response, error)

// Route binds a space-separated command of two or three words to a handler.
type Route struct {
	Command string
	Handler Handler
}

// Router dispatches command words to the handlers of a static table.
type Router struct {
	self     string
	routes   []Route
	handlers map[string]Handler
}

// NewRouter builds a router. self is the invocation prefix used in help
// output; routes keep their order in the usage listing. A later route with a
// duplicate command replaces the earlier handler.
func NewRouter(self string, routes []Route) *Router {
	r := &Router{
		self:     self,
		handlers: make(map[string]Handler, len(routes)),
	}
	for _, route := range routes {
		if _, dup := r.handlers[route.Command]; !dup {
			r.routes = append(r.routes, route)
		}
		r.handlers[route.Command] = route.Handler
	}
	return r
}

// Lookup resolves positional words to a handler, preferring a three-word
// command over a two-word one.
func (r *Router) Lookup(positional []string) (Handler, bool) {
	for _, n := range []int{3, 2} {
		if len(positional) < n {
			continue
		}
		if h, ok := r.handlers[strings.Join(positional[:n], " ")]; ok {
			return h, true
		}
	}
	return nil, false
}

// IsHelp reports whether the invocation asks for the usage listing.
func IsHelp(positional []string, flags Flags) bool {
	if len(positional) == 0 || flags.Has("help") {
		return true
	}
	switch positional[0] {
	case "help", "-h", "--help":
		return true
	}
	return false
}

// Usage lists every command with its invocation line, in table order.
func (r *Router) Usage() Usage {
	usage := make(Usage, 0, len(r.routes))
	for _, route := range r.routes {
		usage = append(usage, UsageLine{
			Command: route.Command,
			Line:    r.self + " " + route.Command + " [flags]",
		})
	}
	return usage
}

// Dispatch runs the command named by positional and writes exactly one JSON
// document to w. It returns the process exit code.
func (r *Router) Dispatch(ctx context.Context, w io.Writer, positional []string, flags Flags) int {
	if IsHelp(positional, flags) {
		return output.Render(w, &output.Response{OK: true, Usage: r.Usage()}, nil)
	}

	h, ok := r.Lookup(positional)
	if !ok {
		return output.Render(w, nil, output.UnknownCommand(strings.Join(positional, " ")))
	}

	resp, err := h(ctx, flags)
	return output.Render(w, resp, err)
}

// UsageLine is one entry of the help listing.
type UsageLine struct {
	Command string
	Line    string
}

// Usage renders as a JSON object whose keys keep table order.
type Usage []UsageLine

func (u Usage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, line := range u {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(line.Command)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(line.Line)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
