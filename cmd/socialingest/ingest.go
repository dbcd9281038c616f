package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"socialingest/pkg/logger"
	"socialingest/pkg/models"
)

var ingestMaxComments int

// ingestCmd runs one ingestion synchronously and prints the terminal job row
var ingestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Ingest comments for one video, post or profile URL",
	Long: `Ingest comments for one video, post or profile URL and store them in
the configured backend. The command blocks until the job reaches a
terminal status and prints the job row as JSON.`,
	Example: `  # A YouTube video
  socialingest ingest https://www.youtube.com/watch?v=dQw4w9WgXcQ

  # An Instagram post, capped at 200 comments
  socialingest ingest --max-comments 200 https://www.instagram.com/p/XYZ123/

  # An Instagram profile (walks recent posts)
  socialingest ingest https://www.instagram.com/someuser/`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVar(&ingestMaxComments, "max-comments", 0, "per-job comment cap (0 uses the configured default)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pipe.close()

	job, err := pipe.orchestrator.Run(ctx, args[0], ingestMaxComments)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(job); err != nil {
		return err
	}

	if job.Status == models.JobStatusError {
		return fmt.Errorf("ingestion failed: %s", job.Error)
	}
	return nil
}
