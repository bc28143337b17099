package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agenda-backend/config"
	"agenda-backend/controllers"
	"agenda-backend/routes"
	"agenda-backend/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		migrateUp bool
		scheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the WhatsApp webhook and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			if a.cfg.JWTSecret == "" {
				return utils.ErrNoJWTSecret
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if migrateUp {
				if err := config.Migrate(a.db); err != nil {
					return err
				}
			}

			if scheduler {
				if _, err := a.reminders.StartScheduler(ctx, a.cfg.SchedulerCron); err != nil {
					return err
				}
			}

			validationToken := ""
			if a.cfg.TwilioValidateSignature {
				validationToken = a.cfg.TwilioAuthToken
			}
			router := routes.SetupRouter(a.cfg, routes.Handlers{
				Availability: controllers.NewAvailabilityController(a.store, a.calendar),
				Appointments: controllers.NewAppointmentController(a.manager, a.store),
				Services:     controllers.NewServiceController(a.store),
				Reminders:    controllers.NewReminderController(a.store),
				Profile:      controllers.NewProfileController(a.store),
				WhatsApp: controllers.NewWhatsAppController(a.store, a.engine, a.sender, controllers.WhatsAppOptions{
					CountryCode:   a.cfg.DefaultCountryCode,
					AuthToken:     validationToken,
					PublicBaseURL: a.cfg.PublicBaseURL,
					Logger:        a.logger.Named("webhook"),
				}),
			}, a.logger)

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Server starting", zap.String("port", a.cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			a.logger.Info("Shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup")
	cmd.Flags().BoolVar(&scheduler, "scheduler", true, "run the reminder scheduler in this process")
	return cmd
}
