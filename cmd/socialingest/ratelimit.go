package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"socialingest/pkg/config"
	"socialingest/pkg/logger"
	"socialingest/pkg/models"
)

var ratelimitPlatform string

// ratelimitCmd groups rate limit state inspection and maintenance
var ratelimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Inspect or reset the persisted rate limit state",
	Long: `Inspect or reset the persisted per-platform rate limit state.

The state survives process restarts; resetting it is an operator action
that clears the violation counter and any active block.`,
}

// ratelimitStatusCmd prints the limiter snapshot for one platform
var ratelimitStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current rate limit state",
	RunE:  runRatelimitStatus,
}

// ratelimitResetCmd clears the persisted state for one platform
var ratelimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the rate limit state",
	RunE:  runRatelimitReset,
}

func init() {
	rootCmd.AddCommand(ratelimitCmd)
	ratelimitCmd.AddCommand(ratelimitStatusCmd)
	ratelimitCmd.AddCommand(ratelimitResetCmd)
	ratelimitCmd.PersistentFlags().StringVar(&ratelimitPlatform, "platform", "instagram", "platform (youtube or instagram)")
}

func ratelimitTarget() (models.Platform, error) {
	platform := models.Platform(ratelimitPlatform)
	if !platform.Supported() {
		return "", fmt.Errorf("unknown platform: %s", ratelimitPlatform)
	}
	return platform, nil
}

func runRatelimitStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	platform, err := ratelimitTarget()
	if err != nil {
		return err
	}

	limiter, err := buildLimiter(cfg, platform, limiterCredential(cfg, platform), logger.GetLogger())
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(limiter.Status())
}

func runRatelimitReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	platform, err := ratelimitTarget()
	if err != nil {
		return err
	}

	limiter, err := buildLimiter(cfg, platform, limiterCredential(cfg, platform), logger.GetLogger())
	if err != nil {
		return err
	}
	limiter.Reset()

	fmt.Printf("rate limit state reset for %s\n", platform)
	return nil
}

func limiterCredential(cfg *config.Config, platform models.Platform) string {
	if platform == models.PlatformInstagram && cfg.Instagram.Username != "" {
		return cfg.Instagram.Username
	}
	return "default"
}
