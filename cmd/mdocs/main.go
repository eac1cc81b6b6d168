package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/config"
	"github.com/xxxsen/mdocs/internal/pkg/jwt"
)

func main() {
	var (
		configPath string
		userID     string
	)

	rootCmd := &cobra.Command{
		Use:   "mdocs",
		Short: "mdocs document service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mdocs server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "purge expired trash for every user once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			app, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			purged, err := app.documents.SweepAll(cmd.Context())
			logutil.GetLogger(cmd.Context()).Info("sweep finished", zap.Int("purged", purged), zap.Error(err))
			return err
		},
	}

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "write a user's export to the file store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			app, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			key, err := app.exports.Backup(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	backupCmd.Flags().StringVar(&userID, "user", "", "owner id to export")

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue a bearer token for a user id (development)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(userID, []byte(cfg.JWTSecret), time.Duration(cfg.JWTTTLHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&userID, "user", "", "user id carried in the token")

	rootCmd.AddCommand(runCmd, sweepCmd, backupCmd, tokenCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}
