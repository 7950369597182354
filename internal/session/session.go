// Package session keeps per-visitor server-side state: string values keyed by name
// and a queue of one-shot flash notices drained on the next render.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// Well-known keys
const (
	KeyAccountID   = "account_id"
	KeySearchQuery = "search_query"
	KeyPage        = "page"
	KeyCSRFToken   = "csrf_token"
)

// ErrNotFound is returned by a Store when the id is unknown or expired
var ErrNotFound = errors.New("session not found")

// Store persists sessions
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Flash levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Flash is a one-shot notice
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Session is the state of one visitor. It is not safe for concurrent use; each request
// works on its own copy.
type Session struct {
	id       string
	staleID  string
	values   map[string]string
	flashes  []Flash
	modified bool
	isNew    bool
}

// New returns an empty, unsaved session with a fresh id
func New() *Session {
	return &Session{
		id:     uuid.NewString(),
		values: map[string]string{},
		isNew:  true,
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) IsNew() bool    { return s.isNew }
func (s *Session) Modified() bool { return s.modified }

// StaleID is the id the session had before Rotate or Clear, if any
func (s *Session) StaleID() string { return s.staleID }

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetString returns the value for key or ""
func (s *Session) GetString(key string) string {
	return s.values[key]
}

func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Session) Set(key, value string) {
	if cur, ok := s.values[key]; ok && cur == value {
		return
	}
	s.values[key] = value
	s.modified = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.modified = true
}

// AddFlash queues a notice for the next render
func (s *Session) AddFlash(level, message string) {
	s.flashes = append(s.flashes, Flash{Level: level, Message: message})
	s.modified = true
}

// Flashes drains the flash queue
func (s *Session) Flashes() []Flash {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.modified = true
	return out
}

// CSRFToken returns the session's token, minting one on first use
func (s *Session) CSRFToken() string {
	if tok := s.values[KeyCSRFToken]; tok != "" {
		return tok
	}
	tok := uuid.NewString()
	s.Set(KeyCSRFToken, tok)
	return tok
}

// Rotate moves the session to a new id keeping its values (used on login)
func (s *Session) Rotate() {
	if s.staleID == "" && !s.isNew {
		s.staleID = s.id
	}
	s.id = uuid.NewString()
	s.isNew = true
	s.modified = true
}

// Clear drops every value and flash and moves to a new id (used on logout)
func (s *Session) Clear() {
	s.values = map[string]string{}
	s.flashes = nil
	s.Rotate()
}

type record struct {
	Values  map[string]string `json:"values"`
	Flashes []Flash           `json:"flashes,omitempty"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes the session payload for a Store
func Encode(s *Session) ([]byte, error) {
	return json.Marshal(record{Values: s.values, Flashes: s.flashes})
}

// Decode rebuilds a stored session
func Decode(id string, data []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec.Values == nil {
		rec.Values = map[string]string{}
	}
	return &Session{id: id, values: rec.Values, flashes: rec.Flashes}, nil
}
