package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/graph"
	"github.com/truemediaorg/crosspublisher/service"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Prints the page access token crosspublisher posts with",
	Long: `Exchanges the configured long-lived user token for the Facebook Page token and
prints it, which confirms the token has the pages_* and instagram_* permissions needed.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, secretsManagerClient := setup(config.FileServerModeDedicated)

		token, err := service.GraphToken(context.Background(), cfg, secretsManagerClient)
		if err != nil {
			log.Fatal(err.Error())
		}
		pageToken, err := graph.NewClient(token, cfg.Graph.APIVersion).PageToken(context.Background(), cfg.Graph.PageID)
		if err != nil {
			log.Fatalf("Page Token Phase: %s", err.Error())
		}

		fmt.Printf("Page %s token:\n%s\n", cfg.Graph.PageID, pageToken)
	},
}
