package main

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionsPruneDropsIdleClients(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessions(time.Hour, zerolog.Nop())
	s.now = func() time.Time { return now }
	defer s.Close()

	idle := s.Get("idle")
	s.Get("busy")

	now = now.Add(45 * time.Minute)
	s.Get("busy")
	assert.Equal(t, 0, s.Prune())

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 1, s.Len())

	select {
	case <-idle.ctx.Done():
	default:
		t.Fatal("pruned session context should be cancelled")
	}

	again := s.Get("idle")
	assert.NotSame(t, idle, again, "a returning client gets a fresh session")
}

func TestSessionsGetReturnsSameSession(t *testing.T) {
	s := NewSessions(time.Hour, zerolog.Nop())
	defer s.Close()

	a := s.Get("client-a")
	assert.Same(t, a, s.Get("client-a"))
	assert.NotSame(t, a, s.Get("client-b"))
	assert.Equal(t, 2, s.Len())
}

func TestSessionsCloseCancelsEverything(t *testing.T) {
	s := NewSessions(time.Hour, zerolog.Nop())
	a := s.Get("client-a")
	s.Close()
	s.Close()

	require.Error(t, a.ctx.Err())
	assert.Equal(t, 0, s.Len())
}

func TestSessionless(t *testing.T) {
	assert.True(t, sessionless("/health"))
	assert.True(t, sessionless("/metrics"))
	assert.True(t, sessionless("/static/app.css"))
	assert.False(t, sessionless("/billing"))
	assert.False(t, sessionless("/statics"))
}

func TestPagerBounds(t *testing.T) {
	tests := []struct {
		page, pages    int
		wantPrev, next int
	}{
		{1, 1, 1, 1},
		{1, 3, 1, 2},
		{2, 3, 1, 3},
		{3, 3, 2, 3},
		{1, 0, 1, 1},
	}
	for _, tt := range tests {
		prev, next := bounds(tt.page, tt.pages)
		assert.Equal(t, tt.wantPrev, prev, "prev for %d/%d", tt.page, tt.pages)
		assert.Equal(t, tt.next, next, "next for %d/%d", tt.page, tt.pages)
	}
}

func TestActionCarriesCSRFHeader(t *testing.T) {
	got := string(action("post", "/registration/page/2"))
	assert.Equal(t, "@post('/registration/page/2', {headers: {'X-CSRF-Token': $csrf}})", got)

	p := actionPager("patients-pager", 2, 3, func(n int) string { return "/registration/page/" + string(rune('0'+n)) })
	assert.Contains(t, string(p.Prev), "/registration/page/1")
	assert.Contains(t, string(p.Next), "/registration/page/3")
	assert.Contains(t, string(p.Next), "data-on:click=")
}
