package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"labdesk/internal/billing"
	"labdesk/internal/draft"
	"labdesk/internal/notice"
	"labdesk/internal/registration"
	"labdesk/internal/results"
)

const (
	clientCookie = "labdesk_client"
	sessionKey   = "session"
)

// Session is one browser client's page state. Background work started on
// its behalf, like debounced searches, is bound to its context.
type Session struct {
	ID     string
	ctx    context.Context
	cancel context.CancelFunc
	board  *notice.Board

	mu           sync.Mutex
	lastSeen     time.Time
	billing      *billing.Workflow
	registration *registration.Page
	results      *results.Entry
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.billing != nil {
		s.billing.Close()
	}
	if s.registration != nil {
		s.registration.Close()
	}
}

// Sessions maps client ids to sessions and drops the idle ones.
type Sessions struct {
	ttl time.Duration
	log zerolog.Logger
	now func() time.Time

	mu   sync.Mutex
	byID map[string]*Session
}

func NewSessions(ttl time.Duration, log zerolog.Logger) *Sessions {
	return &Sessions{ttl: ttl, log: log, now: time.Now, byID: make(map[string]*Session)}
}

func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		sess = &Session{
			ID:      id,
			ctx:     ctx,
			cancel:  cancel,
			board:   notice.NewBoard(nil),
			results: results.NewEntry(),
		}
		s.byID[id] = sess
	}
	sess.touch(s.now())
	return sess
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Prune closes sessions idle for longer than the TTL. Drafts stay in the
// draft store and are restored by the next visit.
func (s *Sessions) Prune() int {
	cutoff := s.now().Add(-s.ttl)
	var idle []*Session

	s.mu.Lock()
	for id, sess := range s.byID {
		sess.mu.Lock()
		stale := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if stale {
			idle = append(idle, sess)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.close()
	}
	return len(idle)
}

func (s *Sessions) Run(ctx context.Context) {
	every := s.ttl / 4
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				s.log.Info().Int("pruned", n).Msg("idle sessions closed")
			}
		}
	}
}

func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.byID
	s.byID = make(map[string]*Session)
	s.mu.Unlock()
	for _, sess := range all {
		sess.close()
	}
}

func sessionless(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/static/")
}

// Middleware identifies the client by its labdesk_client cookie, issuing a
// new id when the cookie is missing or unusable as a draft key.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sessionless(c.Request().URL.Path) {
				return next(c)
			}
			id := ""
			if ck, err := c.Cookie(clientCookie); err == nil && draft.ValidKey(ck.Value) {
				id = ck.Value
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     clientCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   365 * 24 * 60 * 60,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(sessionKey, s.Get(id))
			return next(c)
		}
	}
}

func sessionFrom(c echo.Context) *Session {
	return c.Get(sessionKey).(*Session)
}

// billingFor returns the client's billing workflow, building and mounting
// it on first use.
func (a *app) billingFor(ctx context.Context, sess *Session) (*billing.Workflow, error) {
	sess.mu.Lock()
	if sess.billing != nil {
		wf := sess.billing
		sess.mu.Unlock()
		return wf, nil
	}
	store, err := draft.Scope(a.drafts, sess.ID, draft.BillingName)
	if err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	wf := billing.New(sess.ctx, a.api, store, sess.board, billing.Config{
		Debounce: a.cfg.SearchDebounce,
		Banner:   a.cfg.SuccessBanner,
	}, a.log.With().Str("client", sess.ID).Str("page", "billing").Logger())
	sess.billing = wf
	sess.mu.Unlock()

	wf.Mount(ctx)
	return wf, nil
}

// registrationFor returns the client's registration page, loading the
// first page of patients on first use.
func (a *app) registrationFor(ctx context.Context, sess *Session) *registration.Page {
	sess.mu.Lock()
	if sess.registration != nil {
		p := sess.registration
		sess.mu.Unlock()
		return p
	}
	p := registration.New(sess.ctx, a.api, a.cfg.SearchDebounce, sess.board,
		a.log.With().Str("client", sess.ID).Str("page", "registration").Logger())
	sess.registration = p
	sess.mu.Unlock()

	p.Load(ctx)
	return p
}
