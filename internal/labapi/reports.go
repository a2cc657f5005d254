package labapi

import (
	"context"
	"net/http"

	"labdesk/internal/models"
)

func (c *Client) PendingSamples(ctx context.Context, page, limit int) (*models.SamplePage, error) {
	var out models.SamplePage
	if err := c.call(ctx, http.MethodGet, "/reports/pending", "/reports/pending", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitResults(ctx context.Context, sub models.ResultSubmission) error {
	return c.call(ctx, http.MethodPost, "/reports/results", "/reports/results", nil, sub, nil)
}
