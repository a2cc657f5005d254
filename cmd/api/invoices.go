package main

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"labdesk/internal/invoicedoc"
	"labdesk/internal/labapi"
	"labdesk/internal/registration"
)

func invoiceStatus(err error) int {
	var apiErr *labapi.APIError
	switch {
	case errors.Is(err, invoicedoc.ErrMissingInvoiceID):
		return http.StatusBadRequest
	case errors.Is(err, invoicedoc.ErrPopupBlocked):
		return http.StatusServiceUnavailable
	case errors.Is(err, invoicedoc.ErrNotHTML), errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// invoiceError answers with the user-facing message as plain text; the
// page shows it as a notice.
func (a *app) invoiceError(c echo.Context, err error, action invoicedoc.Action) error {
	a.log.Warn().Err(err).Str("key", c.Param("key")).Str("request_id", requestID(c)).Msg("invoice document")
	return c.String(invoiceStatus(err), invoicedoc.Message(err, action))
}

func requestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}

// handleInvoicePrint returns the printed document as a PDF for the
// browser's print dialog.
func (a *app) handleInvoicePrint(c echo.Context) error {
	key := c.Param("key")
	pdf, err := a.docs.Print(c.Request().Context(), key)
	if err != nil {
		return a.invoiceError(c, err, invoicedoc.ActionPrint)
	}
	return a.pdf(c, "inline", key, pdf)
}

// handleInvoiceView returns the invoice document with its download control.
func (a *app) handleInvoiceView(c echo.Context) error {
	key := c.Param("key")
	pdfURL := "/billing/invoices/" + url.PathEscape(key) + "/pdf"
	html, err := a.docs.View(c.Request().Context(), key, pdfURL)
	if err != nil {
		return a.invoiceError(c, err, invoicedoc.ActionDownload)
	}
	return c.HTML(http.StatusOK, html)
}

func (a *app) handleInvoicePDF(c echo.Context) error {
	key := c.Param("key")
	pdf, err := a.docs.Download(c.Request().Context(), key)
	if err != nil {
		return a.invoiceError(c, err, invoicedoc.ActionDownload)
	}
	return a.pdf(c, "attachment", key, pdf)
}

func (a *app) pdf(c echo.Context, disposition, key string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(disposition, key))
	return c.Blob(http.StatusOK, "application/pdf", body)
}

func contentDisposition(disposition, key string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": invoicedoc.Filename(key)}); v != "" {
		return v
	}
	return disposition
}

// handlePatientInvoicePrint prints the most recent invoice of a patient.
func (a *app) handlePatientInvoicePrint(c echo.Context) error {
	ctx := c.Request().Context()
	page := a.registrationFor(ctx, sessionFrom(c))

	inv, err := page.LatestInvoice(ctx, c.Param("id"))
	if errors.Is(err, registration.ErrNoInvoice) {
		return c.String(http.StatusNotFound, registration.MsgNoInvoice)
	}
	if err != nil {
		a.log.Warn().Err(err).Str("patient", c.Param("id")).Msg("latest invoice")
		return c.String(http.StatusBadGateway, labapi.MessageOr(err, "Failed to fetch invoice"))
	}

	key, err := invoicedoc.DocumentKey(&inv)
	if err != nil {
		return a.invoiceError(c, err, invoicedoc.ActionPrint)
	}
	pdf, err := a.docs.Print(ctx, key)
	if err != nil {
		return a.invoiceError(c, err, invoicedoc.ActionPrint)
	}
	return a.pdf(c, "inline", key, pdf)
}
