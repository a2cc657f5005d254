package billing

import (
	"context"
	"fmt"
	"time"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
)

// Generate creates the invoice for the current selection.
//
// It refuses without a request when no patient or no test is selected, or
// while another generation is running. On success the banner is shown for
// the configured window, the stored draft is deleted and every field is
// reset. On failure nothing is reset.
func (w *Workflow) Generate(ctx context.Context) (*models.Invoice, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	if w.selectedPatient == nil {
		w.mu.Unlock()
		invoicesTotal.WithLabelValues("rejected").Inc()
		w.board.Push(notice.Error, MsgNoPatient)
		return nil, ErrNoPatient
	}
	if len(w.selectedTests) == 0 {
		w.mu.Unlock()
		invoicesTotal.WithLabelValues("rejected").Inc()
		w.board.Push(notice.Error, MsgNoTests)
		return nil, ErrNoTests
	}
	amounts := Compute(w.selectedTests, w.discount, w.paid)
	req := models.InvoiceRequest{
		PatientID:   w.selectedPatient.ID,
		Tests:       testIDs(w.selectedTests),
		Discount:    amounts.Discount,
		PaidAmount:  amounts.Paid,
		PaymentMode: w.mode,
	}
	w.submitting = true
	w.mu.Unlock()
	w.board.Signal().Fire()

	inv, err := w.api.CreateInvoice(ctx, req)
	if err != nil {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
		invoicesTotal.WithLabelValues("failure").Inc()
		w.log.Warn().Err(err).Str("patient", req.PatientID).Msg("generate invoice")
		w.board.Push(notice.Error, labapi.MessageOr(err, MsgGenerateFailed))
		return nil, err
	}
	invoicesTotal.WithLabelValues("success").Inc()
	w.log.Info().Str("invoice", inv.InvoiceIDs).Str("patient", req.PatientID).Msg("invoice generated")

	w.persistMu.Lock()
	w.mu.Lock()
	w.submitting = false
	w.selectedPatient = nil
	w.pendingPatientID = ""
	w.selectedTests = nil
	w.pendingTestIDs = nil
	w.testsRestored = true
	w.discount = ""
	w.paid = ""
	w.mode = models.PaymentCash
	w.newPatient = newPatientForm()
	w.showBannerLocked(fmt.Sprintf("Invoice Generated Successfully! Invoice ID: %s", inv.InvoiceIDs), inv)
	w.mu.Unlock()

	w.search.Type("")
	if err := w.store.Clear(ctx); err != nil {
		w.log.Warn().Err(err).Msg("clear billing draft")
	}
	w.persistMu.Unlock()

	w.board.Signal().Fire()
	return inv, nil
}

func (w *Workflow) showBannerLocked(msg string, inv *models.Invoice) {
	if w.bannerTimer != nil {
		w.bannerTimer.Stop()
	}
	w.banner = msg
	w.lastInvoice = inv

	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Banner, func() {
		w.mu.Lock()
		if w.bannerTimer != timer {
			w.mu.Unlock()
			return
		}
		w.banner = ""
		w.lastInvoice = nil
		w.bannerTimer = nil
		w.mu.Unlock()
		w.board.Signal().Fire()
	})
	w.bannerTimer = timer
}
