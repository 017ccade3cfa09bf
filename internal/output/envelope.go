package output

import (
	"bytes"
	"encoding/json"
	"io"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
)

// Response is the success envelope.
type Response struct {
	OK      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Action  string          `json:"action,omitempty"`
	Path    string          `json:"path,omitempty"`
	Scopes  []string        `json:"scopes,omitempty"`
	Usage   any             `json:"usage,omitempty"`
	Version string          `json:"version,omitempty"`
}

// Data wraps a remote payload.
func Data(data json.RawMessage) *Response {
	return &Response{OK: true, Data: data}
}

// Action reports a completed operation that returns no payload.
func Action(action string) *Response {
	return &Response{OK: true, Action: action}
}

// ErrorResponse is the failure envelope. Status and code render as null when
// absent.
type ErrorResponse struct {
	OK     bool      `json:"ok"`
	Status *int      `json:"status"`
	Error  ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string  `json:"message"`
	Name    string  `json:"name"`
	Code    *string `json:"code"`
	Details any     `json:"details"`
}

// NewErrorResponse builds the failure envelope for err.
func NewErrorResponse(err error) *ErrorResponse {
	e := AsError(err)
	resp := &ErrorResponse{
		Error: ErrorBody{
			Message: e.Message,
			Name:    e.Name(),
			Details: e.Details,
		},
	}
	if e.Status != 0 {
		status := e.Status
		resp.Status = &status
	}
	code := e.Code
	if code == "" {
		code = string(e.Kind)
	}
	if code != "" {
		resp.Error.Code = &code
	}
	return resp
}

// Write encodes v as one pretty-printed, newline-terminated document. The
// document is fully encoded before anything reaches w.
func Write(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Render writes the outcome of one invocation and returns its exit code.
func Render(w io.Writer, resp *Response, err error) int {
	if err != nil {
		_ = Write(w, NewErrorResponse(err))
		return ExitError
	}
	if resp == nil {
		resp = &Response{OK: true}
	}
	if werr := Write(w, resp); werr != nil {
		// The success payload could not be encoded; report that instead so
		// the stream still carries one document.
		_ = Write(w, NewErrorResponse(werr))
		return ExitError
	}
	return ExitOK
}
