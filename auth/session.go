package auth

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stockadvisor/api"
	"stockadvisor/config"
)

// Session owns the token, the signed-in user and the selected exchange. Every
// change to who is signed in bumps the epoch, so results of requests issued
// under an older epoch can be recognised and dropped.
type Session struct {
	mu       sync.RWMutex
	client   *api.Client
	store    *Store
	logger   zerolog.Logger
	token    string
	user     *api.User
	exchange config.Exchange
	epoch    uint64
}

// NewSession restores the persisted token and exchange and applies the token
// to client. fallback is used when no exchange was saved.
func NewSession(client *api.Client, store *Store, fallback config.Exchange) *Session {
	s := &Session{
		client:   client,
		store:    store,
		logger:   log.With().Str("component", "session").Logger(),
		exchange: fallback,
	}

	st, err := store.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not load saved state")
	}
	if st.Exchange != "" {
		s.exchange = config.ParseExchange(st.Exchange)
	}
	s.token = st.Token
	client.SetToken(st.Token)
	return s
}

// Begin starts a session with token, persisting it and applying it to the client.
func (s *Session) Begin(token string) uint64 {
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.client.SetToken(token)
	if err := s.store.SaveToken(token); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist token")
	}
	return epoch
}

// End clears the token and exchange from memory and storage.
func (s *Session) End() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.epoch++
	s.mu.Unlock()

	s.client.SetToken("")
	if err := s.store.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("could not clear saved state")
	}
}

func (s *Session) SetUser(u *api.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// SetExchange selects ex and persists the choice.
func (s *Session) SetExchange(ex config.Exchange) {
	s.mu.Lock()
	s.exchange = ex
	s.mu.Unlock()

	if err := s.store.SaveExchange(string(ex)); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist exchange")
	}
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) HasToken() bool {
	return s.Token() != ""
}

func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Exchange() config.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exchange
}

func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Current reports whether epoch still identifies the active session.
func (s *Session) Current(epoch uint64) bool {
	return s.Epoch() == epoch
}

// IsAdmin reports whether the signed-in user's email matches adminEmail.
func (s *Session) IsAdmin(adminEmail string) bool {
	u := s.User()
	return u != nil && adminEmail != "" && u.Email == adminEmail
}

// Initials returns up to two letters identifying the user, "?" when unknown.
func (s *Session) Initials() string {
	u := s.User()
	if u == nil {
		return "?"
	}
	var b strings.Builder
	for _, name := range []string{u.FirstName, u.LastName} {
		if r := []rune(strings.TrimSpace(name)); len(r) > 0 {
			b.WriteString(strings.ToUpper(string(r[0])))
		}
	}
	if b.Len() == 0 {
		if r := []rune(u.Email); len(r) > 0 {
			return strings.ToUpper(string(r[0]))
		}
		return "?"
	}
	return b.String()
}
