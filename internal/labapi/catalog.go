package labapi

import (
	"context"
	"net/http"
	"net/url"

	"labdesk/internal/models"
)

func (c *Client) ListTests(ctx context.Context, page, limit int) (*models.TestPage, error) {
	var out models.TestPage
	if err := c.call(ctx, http.MethodGet, "/tests", "/tests", pageQuery(page, limit), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTest(ctx context.Context, t models.LabTest) (*models.LabTest, error) {
	t.ID = ""
	var out models.LabTest
	if err := c.call(ctx, http.MethodPost, "/tests", "/tests", nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTest(ctx context.Context, id string, t models.LabTest) (*models.LabTest, error) {
	t.ID = ""
	var out models.LabTest
	if err := c.call(ctx, http.MethodPut, "/tests/:id", "/tests/"+url.PathEscape(id), nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTest(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/tests/:id", "/tests/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var out []models.Department
	if err := c.call(ctx, http.MethodGet, "/departments", "/departments", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDepartment(ctx context.Context, d models.Department) (*models.Department, error) {
	d.ID = ""
	var out models.Department
	if err := c.call(ctx, http.MethodPost, "/departments", "/departments", nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDepartment(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/departments/:id", "/departments/"+url.PathEscape(id), nil, nil, nil)
}
