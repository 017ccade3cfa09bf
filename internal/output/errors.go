// Package output renders the single JSON document every invocation prints and
// defines the error taxonomy behind it.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/api/googleapi"
)

// Kind classifies a failure. It is rendered as error.code.
type Kind string

const (
	KindMissingCredentials      Kind = "MISSING_CREDENTIALS"
	KindInvalidCredentials      Kind = "INVALID_CREDENTIALS"
	KindNotAuthenticated        Kind = "NOT_AUTHENTICATED"
	KindMissingArg              Kind = "MISSING_ARG"
	KindInvalidArg              Kind = "INVALID_ARG"
	KindMissingInput            Kind = "MISSING_INPUT"
	KindInvalidJSON             Kind = "INVALID_JSON"
	KindCredentialsAlreadyExist Kind = "CREDENTIALS_ALREADY_EXIST"
	KindUnsupportedPlatform     Kind = "UNSUPPORTED_PLATFORM"
	KindClipboardReadFailed     Kind = "CLIPBOARD_READ_FAILED"
	KindEmptyClipboard          Kind = "EMPTY_CLIPBOARD"
	KindOAuthTimeout            Kind = "OAUTH_TIMEOUT"
	KindExchangeFailed          Kind = "EXCHANGE_FAILED"
	KindServerError             Kind = "SERVER_ERROR"
	KindUnknownCommand          Kind = "UNKNOWN_COMMAND"
	KindAPI                     Kind = "API_ERROR"
)

// Error is a classified failure carrying an optional HTTP status and a
// structured details payload from the remote service.
type Error struct {
	Kind    Kind
	Message string
	// Code overrides Kind in the rendered document. Remote errors use the
	// service's own status string here.
	Code    string
	Status  int
	Details any
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Name is the error class reported in error.name.
func (e *Error) Name() string {
	if e.Kind == KindAPI || e.Kind == KindExchangeFailed {
		return "APIError"
	}
	return "Error"
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// MissingCredentials reports an absent credentials file. The message carries
// the import instructions.
func MissingCredentials(msg string) *Error {
	return &Error{Kind: KindMissingCredentials, Message: msg}
}

func InvalidCredentials(msg string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: msg}
}

func NotAuthenticated(msg string) *Error {
	return &Error{Kind: KindNotAuthenticated, Message: msg}
}

// MissingArg names the flag the handler required.
func MissingArg(flag string) *Error {
	return newError(KindMissingArg, "Missing --%s", flag)
}

func InvalidArg(flag, value string) *Error {
	return newError(KindInvalidArg, "Invalid --%s: %s", flag, value)
}

func MissingInput(msg string) *Error {
	return &Error{Kind: KindMissingInput, Message: msg}
}

func InvalidJSON(msg string) *Error {
	return &Error{Kind: KindInvalidJSON, Message: msg}
}

func CredentialsAlreadyExist(path string) *Error {
	return newError(KindCredentialsAlreadyExist,
		"Credentials already exist at %s. Re-run with --overwrite to replace.", path)
}

func UnsupportedPlatform(msg string) *Error {
	return &Error{Kind: KindUnsupportedPlatform, Message: msg}
}

func ClipboardReadFailed(tool string, cause error) *Error {
	return &Error{
		Kind:    KindClipboardReadFailed,
		Message: fmt.Sprintf("Failed to read clipboard via %s.", tool),
		Cause:   cause,
	}
}

func EmptyClipboard() *Error {
	return newError(KindEmptyClipboard, "Clipboard is empty or does not contain JSON text.")
}

func OAuthTimeout() *Error {
	return newError(KindOAuthTimeout, "OAuth login timed out.")
}

// ServerError reports a failure of the local callback listener.
func ServerError(msg string, cause error) *Error {
	return &Error{Kind: KindServerError, Message: msg, Cause: cause}
}

// UnknownCommand echoes the words the operator typed.
func UnknownCommand(words string) *Error {
	return newError(KindUnknownCommand, "Unknown command: %s", words)
}

// ExchangeFailed wraps a token endpoint failure, keeping its status and body.
func ExchangeFailed(status int, body []byte, cause error) *Error {
	msg := "Authorization code exchange failed"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{
		Kind:    KindExchangeFailed,
		Message: msg,
		Status:  status,
		Details: decodeDetails(body),
		Cause:   cause,
	}
}

// FromAPI converts a remote service error into an *Error, passing through the
// status code and decoded payload unmodified.
func FromAPI(gerr *googleapi.Error) *Error {
	e := &Error{
		Kind:    KindAPI,
		Message: gerr.Message,
		Status:  gerr.Code,
		Details: decodeDetails([]byte(gerr.Body)),
		Cause:   gerr,
	}
	if gerr.Code != 0 {
		e.Code = strconv.Itoa(gerr.Code)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Request failed with status code %d", gerr.Code)
	}

	var envelope struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(gerr.Body), &envelope) == nil && envelope.Error.Status != "" {
		e.Code = envelope.Error.Status
	}
	return e
}

// decodeDetails returns the JSON value of body, or body as text when it is not
// JSON. Empty bodies yield nil.
func decodeDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

// AsError classifies any error. Plain errors become an unclassified *Error so
// they can still be rendered.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return FromAPI(gerr)
	}
	return &Error{Message: err.Error(), Cause: err}
}
