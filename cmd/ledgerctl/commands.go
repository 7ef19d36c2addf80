package main

import (
	"encoding/json"
	"fmt"
	"os"

	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"
	"go-pos-ledger/pkg/database"
	"go-pos-ledger/pkg/jwt"
	"go-pos-ledger/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// bootDB loads config and opens the database connection.
func bootDB() (*config.Config, *gorm.DB, error) {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, true)
	db, err := database.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// ledgerctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the ledger tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootDB()
		if err != nil {
			return err
		}
		fmt.Println("Running migrations…")
		return database.Migrate(db)
	},
}

// ledgerctl reconcile
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove orphan transaction headers and report stock drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootDB()
		if err != nil {
			return err
		}
		reconciler := service.NewReconcileService(
			repository.NewTransactionRepo(db),
			repository.NewProductRepo(db),
			repository.NewStockRepo(db),
			cfg.OrphanGrace,
		)
		report, err := reconciler.Run(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if len(report.Drifts) > 0 {
			return fmt.Errorf("%d product(s) drifted from their stock log", len(report.Drifts))
		}
		return nil
	},
}

var (
	resetEmail    string
	resetPassword string
)

// ledgerctl reset-password --email admin@example.com --password admin123
var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootDB()
		if err != nil {
			return err
		}
		auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWTSecret, 0))
		if err := auth.ResetPassword(cmd.Context(), resetEmail, resetPassword); err != nil {
			return err
		}
		fmt.Printf("Password for %s has been reset\n", resetEmail)
		return nil
	},
}

func init() {
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "admin@example.com", "user email")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "new password")
	_ = resetPasswordCmd.MarkFlagRequired("password")
}
