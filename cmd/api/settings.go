package main

import (
	"context"

	"github.com/labstack/echo/v4"

	"labdesk/internal/labapi"
	"labdesk/internal/models"
	"labdesk/internal/notice"
	"labdesk/internal/settings"
)

const (
	MsgSettingsUpdated = "Settings updated successfully!"
	MsgSettingsFailed  = "Failed to update settings"
	MsgLogoUploaded    = "Logo uploaded successfully!"
	MsgLogoFailed      = "Failed to upload logo"
)

// currentSettings returns the cached lab profile, fetching it on first use.
// Pages still render with an empty profile when the service is down.
func (a *app) currentSettings(ctx context.Context) models.Settings {
	s, err := a.settings.Load(ctx, a.api)
	if err != nil {
		a.log.Warn().Err(err).Msg("load settings")
	}
	return s
}

type settingsField struct {
	Name      string
	Label     string
	Value     string
	Error     string
	Required  bool
	Multiline bool
	Numeric   bool
}

type settingsData struct {
	Fields  []settingsField
	LogoURL string
}

func (a *app) newSettingsData(s models.Settings, errs map[string]string) settingsData {
	field := func(name, label, value string) settingsField {
		return settingsField{Name: name, Label: label, Value: value, Error: errs[name]}
	}
	fields := []settingsField{
		field("labName", "Lab Name", s.LabName),
		field("businessName", "Business Name", s.BusinessName),
		field("address", "Address", s.Address),
		field("mobile", "Mobile", s.Mobile),
		field("email", "Email", s.Email),
		field("gstNumber", "GST Number", s.GSTNumber),
		field("termsAndConditions", "Terms and Conditions", s.TermsAndConditions),
	}
	for i := range fields {
		switch fields[i].Name {
		case "labName", "mobile":
			fields[i].Required = true
		case "address":
			fields[i].Required = true
			fields[i].Multiline = true
		case "termsAndConditions":
			fields[i].Multiline = true
		}
		fields[i].Numeric = fields[i].Name == "mobile"
	}
	return settingsData{Fields: fields, LogoURL: a.api.ResolveAssetURL(s.Logo)}
}

// handleSettings always refetches so the form starts from what the
// service holds, and shares the result with every open page.
func (a *app) handleSettings(c echo.Context) error {
	s, err := a.api.GetSettings(c.Request().Context())
	if err != nil {
		a.log.Warn().Err(err).Msg("get settings")
		sessionFrom(c).board.Push(notice.Error, labapi.MessageOr(err, "Failed to load settings"))
		cached, _ := a.settings.Get()
		return a.render(c, "settings", "Settings", a.newSettingsData(cached, nil))
	}
	a.settings.Publish(*s)
	return a.render(c, "settings", "Settings", a.newSettingsData(*s, nil))
}

func (a *app) handleSaveSettings(c echo.Context) error {
	var form models.Settings
	if err := decodeForm(c, &form); err != nil {
		return err
	}
	form = settings.Normalize(form)
	cached, _ := a.settings.Get()
	form.Logo = cached.Logo
	board := sessionFrom(c).board

	if errs := settings.Validate(form); len(errs) > 0 {
		board.Push(notice.Error, settings.MsgFixErrors)
		return a.render(c, "settings", "Settings", a.newSettingsData(form, errs))
	}

	updated, err := a.api.UpdateSettings(c.Request().Context(), form)
	if err != nil {
		a.log.Warn().Err(err).Msg("update settings")
		board.Push(notice.Error, labapi.MessageOr(err, MsgSettingsFailed))
		return a.render(c, "settings", "Settings", a.newSettingsData(form, nil))
	}
	a.settings.Publish(*updated)
	board.Push(notice.Success, MsgSettingsUpdated)
	return redirect(c, "/settings")
}

func (a *app) handleUploadLogo(c echo.Context) error {
	board := sessionFrom(c).board
	fh, err := c.FormFile("logo")
	if err != nil {
		board.Push(notice.Error, settings.MsgLogoNotImage)
		return redirect(c, "/settings")
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if !settings.IsImage(contentType) {
		board.Push(notice.Error, settings.MsgLogoNotImage)
		return redirect(c, "/settings")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	path, err := a.api.UploadLogo(c.Request().Context(), fh.Filename, contentType, f)
	if err != nil {
		a.log.Warn().Err(err).Msg("upload logo")
		board.Push(notice.Error, labapi.MessageOr(err, MsgLogoFailed))
		return redirect(c, "/settings")
	}

	s, _ := a.settings.Get()
	s.Logo = path
	a.settings.Publish(s)
	board.Push(notice.Success, MsgLogoUploaded)
	return redirect(c, "/settings")
}
