package main

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"

	"labdesk/internal/models"
	"labdesk/internal/notice"
)

// patchFunc renders the page's live fragments.
type patchFunc func() (string, error)

// stream holds a page's SSE connection open. Every change signalled on the
// session board re-renders the page fragments and appends queued notices;
// settings updates re-render the lab header.
func (a *app) stream(c echo.Context, sess *Session, page string, patch patchFunc) error {
	sse := datastar.NewSSE(c.Response(), c.Request())
	updates, stop := a.settings.Subscribe()
	defer stop()

	flush := func() error {
		html, err := patch()
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html); err != nil {
			return err
		}
		return a.patchNotices(sse, sess.board)
	}

	ctx := c.Request().Context()
	if err := flush(); err != nil {
		return streamDone(ctx, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.ctx.Done():
			return nil
		case <-sess.board.Signal().C():
			if err := flush(); err != nil {
				return streamDone(ctx, err)
			}
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			if err := a.patchHeader(sse, page, s); err != nil {
				return streamDone(ctx, err)
			}
		}
	}
}

// streamDone swallows write errors caused by the client going away.
func streamDone(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// patchNotices appends every queued notice to the page's notice area.
func (a *app) patchNotices(sse *datastar.ServerSentEventGenerator, board *notice.Board) error {
	items := board.Drain()
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	for _, n := range items {
		html, err := a.views.fragment("billing", "notice", n)
		if err != nil {
			return err
		}
		b.WriteString(html)
	}
	return sse.PatchElements(b.String(), datastar.WithSelector("#notices"), datastar.WithModeAppend())
}

func (a *app) patchHeader(sse *datastar.ServerSentEventGenerator, page string, s models.Settings) error {
	html, err := a.views.fragment(page, "lab-header", a.header(s))
	if err != nil {
		return err
	}
	return sse.PatchElements(html)
}
