package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"labdesk/internal/billing"
	"labdesk/internal/config"
	"labdesk/internal/db"
	"labdesk/internal/draft"
	"labdesk/internal/invoicedoc"
	"labdesk/internal/labapi"
	"labdesk/internal/middleware"
	"labdesk/internal/settings"
	"labdesk/internal/store"
	"labdesk/ui"
)

// app carries what the handlers share.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	api      *labapi.Client
	drafts   draft.Backend
	docs     *invoicedoc.Service
	settings *settings.Cache
	sessions *Sessions
	views    *renderer
	registry *prometheus.Registry
}

func newApp(cfg *config.Config, log zerolog.Logger, api *labapi.Client, drafts draft.Backend, opener invoicedoc.Opener) (*app, error) {
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(middleware.Collectors()...)
	reg.MustRegister(labapi.Collectors()...)
	reg.MustRegister(billing.Collectors()...)

	return &app{
		cfg:      cfg,
		log:      log,
		api:      api,
		drafts:   drafts,
		docs:     invoicedoc.NewService(api, opener, log.With().Str("component", "invoicedoc").Logger()),
		settings: settings.NewCache(),
		sessions: NewSessions(cfg.SessionTTL, log),
		views:    views,
		registry: reg,
	}, nil
}

func (a *app) echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = a.views

	e.Use(middleware.Recovery(a.log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.log))
	e.Use(middleware.Metrics())
	e.Use(echomw.BodyLimit("10M"))
	e.Use(middleware.CSRF())
	e.Use(a.sessions.Middleware())

	a.routes(e)
	return e
}

func (a *app) routes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	e.StaticFS("/static", echo.MustSubFS(ui.FS, "static"))
	e.GET("/", func(c echo.Context) error { return c.Redirect(http.StatusFound, "/billing") })

	e.GET("/billing", a.handleBilling)
	e.GET("/billing/stream", a.handleBillingStream)
	e.POST("/billing/search", a.billingAction(a.handleBillingSearch))
	e.POST("/billing/search/submit", a.billingAction(a.handleBillingSearchSubmit))
	e.POST("/billing/patient/:id", a.billingAction(a.handleBillingSelectPatient))
	e.DELETE("/billing/patient", a.billingAction(a.handleBillingClearPatient))
	e.POST("/billing/tests", a.billingAction(a.handleBillingAddTest))
	e.DELETE("/billing/tests/:index", a.billingAction(a.handleBillingRemoveTest))
	e.POST("/billing/amounts", a.billingAction(a.handleBillingAmounts))
	e.POST("/billing/quick-add/open", a.billingAction(a.handleQuickAddOpen))
	e.POST("/billing/quick-add/close", a.billingAction(a.handleQuickAddClose))
	e.POST("/billing/quick-add/input/:field", a.billingAction(a.handleQuickAddInput))
	e.POST("/billing/quick-add/submit", a.billingAction(a.handleQuickAddSubmit))
	e.POST("/billing/generate", a.billingAction(a.handleGenerate))
	e.GET("/billing/invoices/:key/print", a.handleInvoicePrint)
	e.GET("/billing/invoices/:key/view", a.handleInvoiceView)
	e.GET("/billing/invoices/:key/pdf", a.handleInvoicePDF)

	e.GET("/registration", a.handleRegistration)
	e.GET("/registration/stream", a.handleRegistrationStream)
	e.POST("/registration/search", a.registrationAction(a.handleRegistrationSearch))
	e.POST("/registration/search/submit", a.registrationAction(a.handleRegistrationSearchSubmit))
	e.POST("/registration/page/:n", a.registrationAction(a.handleRegistrationPage))
	e.POST("/registration/input/:field", a.registrationAction(a.handleRegistrationInput))
	e.POST("/registration/register", a.registrationAction(a.handleRegister))
	e.GET("/registration/patients/:id/invoice/print", a.handlePatientInvoicePrint)

	e.GET("/departments", a.handleDepartments)
	e.POST("/departments", a.handleCreateDepartment)
	e.POST("/departments/:id/delete", a.handleDeleteDepartment)
	e.POST("/search/departments", a.handleDepartmentSearch)

	e.GET("/tests", a.handleTests)
	e.POST("/tests", a.handleSaveTest)
	e.POST("/tests/:id", a.handleSaveTest)
	e.POST("/tests/:id/delete", a.handleDeleteTest)

	e.GET("/results", a.handleResults)
	e.POST("/results/submit", a.resultAction(a.handleSubmitResults))
	e.POST("/results/sub/add", a.resultAction(a.handleAddSubResult))
	e.POST("/results/sub/remove", a.resultAction(a.handleRemoveSubResult))
	e.POST("/results/close", a.handleCloseResults)

	e.GET("/settings", a.handleSettings)
	e.POST("/settings", a.handleSaveSettings)
	e.POST("/settings/logo", a.handleUploadLogo)
}

func tokenSource(cfg *config.Config) labapi.TokenSource {
	if cfg.LabAPISigningKey != "" {
		return labapi.NewSignedToken([]byte(cfg.LabAPISigningKey))
	}
	return labapi.StaticToken(cfg.LabAPIToken)
}

func newLabClient(cfg *config.Config, log zerolog.Logger) (*labapi.Client, error) {
	return labapi.New(cfg.LabAPIURL,
		labapi.WithTimeout(cfg.LabAPITimeout),
		labapi.WithTokenSource(tokenSource(cfg)),
		labapi.WithLogger(log.With().Str("component", "labapi").Logger()),
	)
}

// openDrafts builds the configured draft backend. The returned func
// releases it.
func openDrafts(ctx context.Context, cfg *config.Config, log zerolog.Logger) (draft.Backend, func(), error) {
	switch cfg.DraftBackend {
	case config.DraftFile:
		b, err := draft.NewFileBackend(cfg.DraftDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("dir", cfg.DraftDir).Msg("drafts stored on disk")
		return b, func() {}, nil
	case config.DraftPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore(pool)
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.Migrate(migrateCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate drafts: %w", err)
		}
		log.Info().Msg("drafts stored in postgres")
		return s, pool.Close, nil
	default:
		return draft.NewMemoryBackend(), func() {}, nil
	}
}
