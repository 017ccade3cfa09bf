package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
	"golang.org/x/term"

	"gapi/internal/output"
)

// Input is the standard input stream of the process. Bodies and credential
// documents can be piped through it.
type Input struct {
	Reader io.Reader
	// Interactive reports whether Reader is a terminal. An interactive
	// stream is never read.
	Interactive func() bool
}

// Stdin returns the process standard input.
func Stdin() *Input {
	return &Input{
		Reader: os.Stdin,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// ReadPiped returns everything piped to the input, or a MISSING_INPUT error
// carrying msg when the input is interactive.
func (in *Input) ReadPiped(msg string) ([]byte, error) {
	if in == nil || in.Reader == nil || (in.Interactive != nil && in.Interactive()) {
		return nil, output.MissingInput(msg)
	}
	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	return data, nil
}

// Body is a parsed JSON request body.
type Body struct {
	JSON json.RawMessage
	// Keys are the top-level object keys in document order. Empty when the
	// body is not an object.
	Keys []string
}

// Body reads the request body from --data, falling back to piped input.
func (in *Input) Body(flags Flags) (*Body, error) {
	raw := flags.String("data")
	if raw == "" {
		data, err := in.ReadPiped("Missing --data <json> or pipe JSON to stdin")
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}

	body, err := ParseBody([]byte(raw))
	if err != nil {
		return nil, output.InvalidJSON("Invalid JSON input")
	}
	return body, nil
}

// ParseBody validates raw as JSON and records its top-level keys. Comments
// and trailing commas are accepted and stripped.
func ParseBody(raw []byte) (*Body, error) {
	data := bytes.TrimSpace(jsonc.ToJSON(raw))
	if !json.Valid(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	keys, err := topLevelKeys(data)
	if err != nil {
		return nil, err
	}
	return &Body{JSON: json.RawMessage(data), Keys: keys}, nil
}

func topLevelKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// FieldMask joins the body keys into an update mask. Keys are used verbatim;
// nothing checks that they are valid field-mask paths.
func (b *Body) FieldMask() string {
	return strings.Join(b.Keys, ",")
}
