package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/model"
	"github.com/truemediaorg/crosspublisher/runner"
	"github.com/truemediaorg/crosspublisher/service"
)

var (
	publishKind            string
	publishURL             string
	publishCaption         string
	publishItemsFile       string
	publishContinueOnError bool
	publishForce           bool
)

func init() {
	publishCmd.Flags().StringVar(&publishKind, "kind", "image", "media kind (image or video)")
	publishCmd.Flags().StringVar(&publishURL, "url", "", "public URL of the source media")
	publishCmd.Flags().StringVar(&publishCaption, "caption", "", "caption for both posts")
	publishCmd.Flags().StringVar(&publishItemsFile, "items", "", "JSON file with an array of {kind, url, caption} items")
	publishCmd.Flags().BoolVar(&publishContinueOnError, "continue-on-error", false, "keep publishing remaining items after a failure")
	publishCmd.Flags().BoolVar(&publishForce, "force", false, "publish even if the ledger says the source was already published")
	publishCmd.MarkFlagsMutuallyExclusive("url", "items")
	publishCmd.MarkFlagsOneRequired("url", "items")
	rootCmd.AddCommand(publishCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publishes media to Instagram and the Facebook Page",
	Long: `Publishes one item given by flags, or every item in a JSON file, to Instagram
and the Facebook Page. Results are printed as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := publishItems()
		if err != nil {
			return err
		}

		cfg, awsConfig, secretsManagerClient := setup(config.FileServerModeDedicated)

		requests := make([]model.PublishRequest, 0, len(items))
		for _, item := range items {
			req, err := item.Request(cfg)
			if err != nil {
				return err
			}
			requests = append(requests, req)
		}

		ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer done()

		graphClient := service.NewGraphService(ctx, cfg, secretsManagerClient)
		ledger, closeLedger := openLedger(ctx, cfg, secretsManagerClient)
		defer closeLedger()

		host, err := service.NewFileHost(cfg, nil, awsConfig)
		if err != nil {
			return err
		}
		publisher := service.NewPublisher(cfg, graphClient, host)

		outcomes, runErr := runner.NewRunner(publisher, ledger, cfg.TestModeEnabled).Run(ctx, requests, runner.Options{
			ContinueOnError: publishContinueOnError,
			Force:           publishForce,
			Concurrency:     cfg.Concurrency,
		})

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report(outcomes)); err != nil {
			log.Errorf("error writing results: %v", err)
		}
		return runErr
	},
}

func publishItems() ([]service.Item, error) {
	if publishItemsFile == "" {
		if publishURL == "" {
			return nil, errors.New("--url or --items is required")
		}
		return []service.Item{{Kind: publishKind, URL: publishURL, Caption: publishCaption}}, nil
	}
	f, err := os.Open(publishItemsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return service.ReadItems(f)
}

type outcomeReport struct {
	Kind    model.MediaKind      `json:"kind"`
	URL     string               `json:"url"`
	Result  *model.PublishResult `json:"result,omitempty"`
	Skipped bool                 `json:"skipped,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func report(outcomes []runner.Outcome) []outcomeReport {
	reports := make([]outcomeReport, 0, len(outcomes))
	for _, outcome := range outcomes {
		r := outcomeReport{
			Kind:    outcome.Request.Kind,
			URL:     outcome.Request.SourceURL,
			Result:  outcome.Result,
			Skipped: outcome.Skipped,
		}
		if outcome.Err != nil {
			r.Error = outcome.Err.Error()
		}
		reports = append(reports, r)
	}
	return reports
}
