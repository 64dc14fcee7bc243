package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/fileserver"
	"github.com/truemediaorg/crosspublisher/runner"
	"github.com/truemediaorg/crosspublisher/service"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Runs the crosspublisher server",
	Long: `Runs the crosspublisher server: a healthcheck on /, a JSON publish API on
POST /publish, and transcoded videos served on the same port for Instagram to fetch.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, awsConfig, secretsManagerClient := setup(config.FileServerModeShared)

		/*
			Graceful shutdown is possible with errgroup + signal.NotifyContext
			NotifyContext returns a context that will close on OS signals to terminate the process
			errgroup uses that context, and also closes it in case a goroutine errors out
		*/
		ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer done()
		g, gCtx := errgroup.WithContext(ctx)

		graphClient := service.NewGraphService(gCtx, cfg, secretsManagerClient)

		ledger, closeLedger := openLedger(gCtx, cfg, secretsManagerClient)
		defer closeLedger()

		// One registry for the process, its middleware installed once by the host server
		registry := fileserver.NewRegistry(fileserver.DefaultPrefix)
		host, err := service.NewFileHost(cfg, registry, awsConfig)
		if err != nil {
			log.Fatal(err)
		}

		publisher := service.NewPublisher(cfg, graphClient, host)
		runner := runner.NewRunner(publisher, ledger, cfg.TestModeEnabled)
		hostServer := service.NewHostServer(cfg, registry, runner)

		g.Go(func() error {
			log.WithField("addr", hostServer.Server.Addr).Info("listening")
			if err := hostServer.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		// ...and shut down the server if the process needs to terminate
		g.Go(func() error {
			<-gCtx.Done()
			defer log.Info("exiting host server")
			return hostServer.Server.Shutdown(context.Background())
		})

		err = g.Wait()
		if err != nil {
			log.Errorf("caught error: %v", err)
		}
	},
}
