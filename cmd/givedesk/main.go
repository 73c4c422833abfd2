package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/config"
	"github.com/Veraticus/givedesk/internal/entity"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "givedesk",
		Short: "♥  Donation platform admin console",
		Long: `givedesk: browse, filter and export donations, campaigns, users and
articles from the donation platform, and walk donors through giving.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/givedesk/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("api-url", "", "donation platform API base URL")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("api.base_url", rootCmd.PersistentFlags().Lookup("api-url"))

	config.SetDefaults(viper.GetViper())

	// Add commands
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(donationsCmd())
	rootCmd.AddCommand(campaignsCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(donateCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(exportsCmd())
	rootCmd.AddCommand(sheetsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		slog.Debug("command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/givedesk", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("GIVEDESK")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	return common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format"))
}

func donationsCmd() *cobra.Command {
	return entityCmd(entity.Donations(), "Donations received by the platform")
}

func campaignsCmd() *cobra.Command {
	cmd := entityCmd(entity.Campaigns(), "Fundraising campaigns")
	cmd.AddCommand(campaignResetCmd())
	cmd.AddCommand(deleteCmd("campaigns", "campaign"))
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := entityCmd(entity.Users(), "Platform users")
	cmd.AddCommand(userSetRoleCmd())
	cmd.AddCommand(userVerifyEmailCmd())
	cmd.AddCommand(userResetPasswordCmd())
	cmd.AddCommand(deleteCmd("users", "user"))
	return cmd
}

func articlesCmd() *cobra.Command {
	cmd := entityCmd(entity.Articles(), "Blog articles")
	cmd.AddCommand(deleteCmd("articles", "article"))
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			slog.Info("givedesk version", "version", version)
		},
	}
}
