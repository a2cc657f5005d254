package labapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"labdesk/internal/models"
)

const maxDocument = 8 << 20

func (c *Client) CreateInvoice(ctx context.Context, req models.InvoiceRequest) (*models.Invoice, error) {
	var out models.Invoice
	if err := c.call(ctx, http.MethodPost, "/billing", "/billing", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvoices returns a patient's invoices, most recent first.
func (c *Client) ListInvoices(ctx context.Context, patientID string, limit int) (*models.InvoicePage, error) {
	q := url.Values{}
	q.Set("patientId", patientID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out models.InvoicePage
	if err := c.call(ctx, http.MethodGet, "/billing", "/billing", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InvoiceDocument fetches the server-rendered invoice as raw text. The
// caller decides whether it is a usable HTML document.
func (c *Client) InvoiceDocument(ctx context.Context, key string) (string, error) {
	resp, err := c.send(ctx, request{
		method:   http.MethodGet,
		endpoint: "/billing/print/:key",
		path:     "/billing/print/" + url.PathEscape(key),
		accept:   htmlAccept,
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
