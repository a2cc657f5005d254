package billing

import (
	"context"

	"labdesk/internal/draft"
	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/validate"
)

var newPatientFields = []string{
	validate.Name,
	validate.Age,
	validate.Gender,
	validate.Mobile,
	validate.ReferringDoctor,
}

func newPatientForm() *validate.Form {
	return formFromDraft(draft.EmptyPatientForm())
}

func formFromDraft(p draft.PatientForm) *validate.Form {
	f := validate.NewForm(newPatientFields...).Require(validate.Name, validate.Age, validate.Mobile)
	f.Set(validate.Name, p.Name)
	f.Set(validate.Age, p.Age)
	f.Set(validate.Gender, p.Gender)
	f.Set(validate.Mobile, p.Mobile)
	f.Set(validate.ReferringDoctor, p.ReferringDoctor)
	return f
}

func draftFromForm(f *validate.Form) draft.PatientForm {
	return draft.PatientForm{
		Name:            f.Get(validate.Name),
		Age:             f.Get(validate.Age),
		Gender:          f.Get(validate.Gender),
		Mobile:          f.Get(validate.Mobile),
		ReferringDoctor: f.Get(validate.ReferringDoctor),
	}
}

func (w *Workflow) OpenQuickAdd() {
	w.mu.Lock()
	w.quickAddOpen = true
	w.mu.Unlock()
}

func (w *Workflow) CloseQuickAdd() {
	w.mu.Lock()
	w.quickAddOpen = false
	w.mu.Unlock()
}

// InputNewPatient applies a keystroke to the quick-add form.
func (w *Workflow) InputNewPatient(ctx context.Context, field, raw string) string {
	w.mu.Lock()
	var msg string
	switch field {
	case validate.Gender:
		w.newPatient.Set(field, raw)
	case validate.Name, validate.Age, validate.Mobile, validate.ReferringDoctor:
		msg = w.newPatient.Input(field, raw)
	default:
		w.mu.Unlock()
		return ""
	}
	w.mu.Unlock()

	w.persist(ctx)
	return msg
}

// RegisterNewPatient submits the quick-add form and selects the result.
// When the server reports the patient already exists, that patient is
// selected instead.
func (w *Workflow) RegisterNewPatient(ctx context.Context) (*models.Patient, error) {
	w.mu.Lock()
	if field, msg := w.newPatient.Validate(); field != "" {
		w.mu.Unlock()
		w.board.Push(notice.Error, msg)
		return nil, validate.ErrInvalid
	}
	p := draftFromForm(w.newPatient)
	w.mu.Unlock()

	payload := models.NewPatient{
		Name:            p.Name,
		Age:             p.Age,
		Gender:          models.Gender(p.Gender),
		Mobile:          p.Mobile,
		ReferringDoctor: p.ReferringDoctor,
	}
	if payload.Age != "" {
		payload.Age += " Years"
	}

	created, err := w.api.RegisterPatient(ctx, payload)
	if err != nil {
		if existing, ok := labapi.ExistingPatient(err); ok {
			w.board.Push(notice.Error, labapi.MessageOr(err, "Patient already exists"))
			w.mu.Lock()
			w.selectedPatient = existing
			w.pendingPatientID = ""
			w.quickAddOpen = false
			w.mu.Unlock()
			w.persist(ctx)
			return existing, nil
		}
		w.log.Warn().Err(err).Msg("quick-add patient")
		w.board.Push(notice.Error, labapi.MessageOr(err, "Failed to register patient"))
		return nil, err
	}

	w.mu.Lock()
	w.selectedPatient = created
	w.pendingPatientID = ""
	w.quickAddOpen = false
	w.newPatient = newPatientForm()
	w.mu.Unlock()

	w.persist(ctx)
	w.board.Push(notice.Success, "Patient registered successfully!")
	return created, nil
}
