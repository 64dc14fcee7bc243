package service

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/graph"
)

// NewGraphService builds a Graph client authenticated with the page token for
// the configured page. Any failure is fatal.
func NewGraphService(ctx context.Context, cfg config.Config, secrets SecretGetter) *graph.Client {
	token, err := GraphToken(ctx, cfg, secrets)
	if err != nil {
		log.Fatal(err.Error())
	}

	client := graph.NewClient(token, cfg.Graph.APIVersion)
	pageToken, err := client.PageToken(ctx, cfg.Graph.PageID)
	if err != nil {
		log.Fatalf("page token exchange error: %v", err)
	}
	log.WithField("pageID", cfg.Graph.PageID).WithField("instagramUserID", cfg.Graph.InstagramUserID).Infof("Graph client initialized. Version: %s", cfg.Graph.APIVersion)

	return client.WithToken(pageToken)
}
