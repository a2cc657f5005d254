package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"labdesk/internal/config"
	"labdesk/internal/db"
	"labdesk/internal/draft"
	"labdesk/internal/invoicedoc"
	"labdesk/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labdesk",
		Short: "Front desk for the lab management service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(invoiceCmd())
	rootCmd.AddCommand(draftCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg == nil || cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if cfg != nil {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil && lvl != zerolog.NoLevel {
			logger = logger.Level(lvl)
		}
	}
	return logger
}

// loadConfig reads and checks the configuration shared by every command.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newLogger(nil), err
	}
	if err := cfg.Validate(); err != nil {
		return nil, newLogger(cfg), err
	}
	return cfg, newLogger(cfg), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, err := newLabClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create lab api client")
	}

	drafts, closeDrafts, err := openDrafts(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open draft storage")
	}
	defer closeDrafts()

	opener := invoicedoc.NewChromeOpener(cfg.ChromePath, cfg.RenderMaxWindows, logger.With().Str("component", "chrome").Logger())
	defer opener.Close()

	a, err := newApp(cfg, logger, api, drafts, opener)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build app")
	}
	defer a.sessions.Close()
	go a.sessions.Run(ctx)

	e := a.echo()
	// SSE streams stay open, so only the header read is bounded.
	e.Server.ReadHeaderTimeout = 10 * time.Second

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("lab_api", cfg.LabAPIURL).Str("drafts", cfg.DraftBackend).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	a.sessions.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Render invoices outside the browser",
	}

	render := func(use, short string, pdf func(*invoicedoc.Service, context.Context, string) ([]byte, error)) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <invoice>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, _ := cmd.Flags().GetString("out")
				timeout, _ := cmd.Flags().GetDuration("timeout")

				cfg, logger, err := loadConfig()
				if err != nil {
					return err
				}
				api, err := newLabClient(cfg, logger)
				if err != nil {
					return err
				}
				opener := invoicedoc.NewChromeOpener(cfg.ChromePath, 1, logger)
				defer opener.Close()
				svc := invoicedoc.NewService(api, opener, logger)

				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()

				key := strings.TrimSpace(args[0])
				body, err := pdf(svc, ctx, key)
				if err != nil {
					return errors.New(invoicedoc.Message(err, actionFor(use)))
				}
				if out == "" {
					out = invoicedoc.Filename(key)
				}
				if err := os.WriteFile(out, body, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Printf("Wrote %s (%d bytes)\n", out, len(body))
				return nil
			},
		}
		c.Flags().String("out", "", "Output file (defaults to the invoice file name)")
		c.Flags().Duration("timeout", 2*time.Minute, "Give up after this long")
		return c
	}

	cmd.AddCommand(render("print", "Print the invoice page to PDF", (*invoicedoc.Service).Print))
	cmd.AddCommand(render("download", "Capture the invoice region as a PDF", (*invoicedoc.Service).Download))
	return cmd
}

func actionFor(use string) invoicedoc.Action {
	if use == "download" {
		return invoicedoc.ActionDownload
	}
	return invoicedoc.ActionPrint
}

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect stored billing drafts",
	}

	withStore := func(cmd *cobra.Command, fn func(context.Context, draft.Store, zerolog.Logger) error) error {
		client, _ := cmd.Flags().GetString("client")
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		backend, closeDrafts, err := openDrafts(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDrafts()
		s, err := draft.Scope(backend, client, draft.BillingName)
		if err != nil {
			return fmt.Errorf("client %q: %w", client, err)
		}
		return fn(ctx, s, logger)
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a client's billing draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s draft.Store, logger zerolog.Logger) error {
				d, ok, err := draft.LoadBilling(ctx, s, logger)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("No billing draft stored.")
					return nil
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			})
		},
	}
	showCmd.Flags().String("client", "", "Browser client id (the labdesk_client cookie)")
	_ = showCmd.MarkFlagRequired("client")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a client's billing draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s draft.Store, _ zerolog.Logger) error {
				if err := s.Clear(ctx); err != nil && !errors.Is(err, draft.ErrNotFound) {
					return err
				}
				fmt.Println("Billing draft cleared.")
				return nil
			})
		},
	}
	clearCmd.Flags().String("client", "", "Browser client id (the labdesk_client cookie)")
	_ = clearCmd.MarkFlagRequired("client")

	expireCmd := &cobra.Command{
		Use:   "expire",
		Short: "Remove postgres drafts not touched recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DraftBackend != config.DraftPostgres {
				return fmt.Errorf("expire needs DRAFT_BACKEND=%s, got %s", config.DraftPostgres, cfg.DraftBackend)
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := store.NewPostgresStore(pool).Expire(ctx, olderThan)
			if err != nil {
				return fmt.Errorf("expire drafts: %w", err)
			}
			fmt.Printf("Removed %d draft(s).\n", n)
			return nil
		},
	}
	expireCmd.Flags().Duration("older-than", 30*24*time.Hour, "Age after which a draft is removed")

	cmd.AddCommand(showCmd, clearCmd, expireCmd)
	return cmd
}
