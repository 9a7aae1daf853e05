package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"berean-backend/internal/auth"
	"berean-backend/internal/common"
	"berean-backend/internal/db"
	"berean-backend/internal/logic"
)

var (
	noScheduler  bool
	demoUser     bool
	demoEmail    string
	demoPassword string
	planDays     int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "berean",
		Short:         "Berean Bible reading plan backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(); err != nil {
				return err
			}
			common.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT") == "json")
			return nil
		},
		RunE: runServe,
	}
	rootCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not start reminder and refresh jobs")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not start reminder and refresh jobs")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE:  runMigrate,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the reading plan and achievement catalog",
		RunE:  runSeed,
	}
	seedCmd.Flags().BoolVar(&demoUser, "demo", false, "also create a demo user")
	seedCmd.Flags().StringVar(&demoEmail, "demo-email", "demo@berean.local", "demo user email")
	seedCmd.Flags().StringVar(&demoPassword, "demo-password", "berean-demo", "demo user password")

	planCmd := &cobra.Command{
		Use:   "generate-plan",
		Short: "Print the generated reading plan as JSON",
		RunE:  runGeneratePlan,
	}
	planCmd.Flags().IntVar(&planDays, "days", 0, "only print the first N days (0 = all)")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, planCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	common.SetupLogger(cfg.LogLevel, cfg.LogJSON)
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	cfg.Print()

	if err := db.InitDB(); err != nil {
		return err
	}

	server := logic.NewServer(cfg, db.GetDB(), logic.NewMetrics())
	if cfg.RemindersEnabled && !noScheduler {
		sched := logic.NewScheduler(logic.NewNotifier(cfg.ReminderWebhookURL), server.Catalog(), server.Metrics(), cfg.Location)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           logic.SetupRouter(server),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := db.InitDB(); err != nil {
		return err
	}
	applied, err := db.AppliedVersions(db.GetDB())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d (%d migrations applied)\n", db.LatestVersion(), len(applied))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := db.InitDB(); err != nil {
		return err
	}
	conn := db.GetDB()
	if err := db.Seed(conn); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "seeded reading plan and achievements")
	if !demoUser {
		return nil
	}
	created, err := seedDemoUser(conn, demoEmail, demoPassword)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "created demo user %s\n", demoEmail)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "demo user %s already exists\n", demoEmail)
	}
	return nil
}

// seedDemoUser creates the demo account unless the email is taken.
func seedDemoUser(conn *gorm.DB, email, password string) (bool, error) {
	_, err := db.FindUserByEmail(conn, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	hash, err := auth.NewManager("", 0).HashPassword(password)
	if err != nil {
		return false, err
	}
	user := db.User{
		Name:                 "Demo Reader",
		Email:                email,
		PasswordHash:         hash,
		Theme:                "light",
		FontSize:             "medium",
		NotificationsEnabled: true,
		Timezone:             "UTC",
		PreferredLanguage:    "eng",
		PreferredTranslation: common.DefaultTranslationID,
	}
	if err := db.CreateUserWithStreak(conn, &user); err != nil {
		return false, err
	}
	return true, nil
}

func runGeneratePlan(cmd *cobra.Command, args []string) error {
	plan, err := db.GenerateBereanPlan()
	if err != nil {
		return err
	}
	if planDays > 0 && planDays < len(plan.DailyReadings) {
		plan.DailyReadings = plan.DailyReadings[:planDays]
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
