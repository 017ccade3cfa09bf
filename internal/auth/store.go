// Package auth runs the OAuth2 loopback login, persists the resulting token
// record and builds authorized HTTP clients from it.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"

	"gapi/internal/config"
	"gapi/internal/output"
)

// updatedAtLayout is ISO-8601 in UTC with millisecond precision.
const updatedAtLayout = "2006-01-02T15:04:05.000Z"

// Tokens is the token set as persisted on disk. Expiry is in Unix
// milliseconds. Fields the token endpoint returns beyond these are kept in
// Extra and written back unchanged.
type Tokens struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiryDate   int64  `json:"expiry_date,omitempty"`

	Extra map[string]any `json:"-"`
}

// extraTokenFields are response fields carried over from an exchange.
var extraTokenFields = []string{"refresh_token_expires_in"}

type tokenFields Tokens

// MarshalJSON writes the known fields over Extra.
func (t Tokens) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(tokenFields(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(t.Extra)+6)
	for k, v := range t.Extra {
		merged[k] = v
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
func (t *Tokens) UnmarshalJSON(data []byte) error {
	var known tokenFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"access_token", "refresh_token", "token_type", "scope", "id_token", "expiry_date"} {
		delete(all, k)
	}

	*t = Tokens(known)
	t.Extra = nil
	if len(all) > 0 {
		t.Extra = all
	}
	return nil
}

// TokenRecord is the content of the token file. Scopes record what was
// requested at login; they are not enforced afterwards.
type TokenRecord struct {
	Scopes    []string `json:"scopes"`
	Tokens    Tokens   `json:"tokens"`
	UpdatedAt string   `json:"updatedAt"`
}

// FromOAuth2 converts an exchanged token into its persisted form
func FromOAuth2(tok *oauth2.Token) Tokens {
	t := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		t.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		t.IDToken = id
	}
	for _, k := range extraTokenFields {
		if v := tok.Extra(k); v != nil && v != "" {
			if t.Extra == nil {
				t.Extra = map[string]any{}
			}
			t.Extra[k] = v
		}
	}
	return t
}

// OAuth2 converts the persisted token set back for use with a TokenSource
func (t Tokens) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiryDate > 0 {
		tok.Expiry = time.UnixMilli(t.ExpiryDate)
	}
	return tok
}

// Store reads and writes the single token file. It takes no locks.
type Store struct {
	Path string
	Self string // command prefix used in the not-authenticated hint

	now func() time.Time
}

// NewStore returns a store for the token file at path
func NewStore(path, self string) *Store {
	return &Store{Path: path, Self: self, now: time.Now}
}

// Load reads the token record. A missing or unparseable file is
// NOT_AUTHENTICATED.
func (s *Store) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, output.NotAuthenticated(fmt.Sprintf("Not authenticated. Run: %s auth login", s.Self))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, output.NotAuthenticated(fmt.Sprintf("Token file at %s is corrupt. Run: %s auth login", s.Path, s.Self))
	}
	return rec, nil
}

// decodeRecord accepts both the wrapped record and a bare token set written
// by older versions.
func decodeRecord(data []byte) (*TokenRecord, error) {
	var wrapped struct {
		Scopes    []string `json:"scopes"`
		Tokens    *Tokens  `json:"tokens"`
		UpdatedAt string   `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if wrapped.Tokens != nil {
		return &TokenRecord{Scopes: wrapped.Scopes, Tokens: *wrapped.Tokens, UpdatedAt: wrapped.UpdatedAt}, nil
	}

	var bare Tokens
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &TokenRecord{Tokens: bare}, nil
}

// Save writes the record as indented JSON, creating the directory if needed
func (s *Store) Save(rec *TokenRecord) error {
	if err := config.WriteJSON(s.Path, rec); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Persist saves a freshly exchanged token set. When the new set carries no
// refresh token the one already on disk is kept; a prior file that cannot be
// read fails the save.
func (s *Store) Persist(scopes []string, tokens Tokens) (*TokenRecord, error) {
	if tokens.RefreshToken == "" {
		exists, err := config.Exists(s.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to check token file: %w", err)
		}
		if exists {
			prior, err := s.Load()
			if err != nil {
				return nil, err
			}
			tokens.RefreshToken = prior.Tokens.RefreshToken
		}
	}

	rec := &TokenRecord{
		Scopes:    scopes,
		Tokens:    tokens,
		UpdatedAt: s.now().UTC().Format(updatedAtLayout),
	}
	if err := s.Save(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
