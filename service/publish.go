package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/fetch"
	"github.com/truemediaorg/crosspublisher/fileserver"
	"github.com/truemediaorg/crosspublisher/model"
	"github.com/truemediaorg/crosspublisher/publisher"
	"github.com/truemediaorg/crosspublisher/transcoder"
)

// Item is one entry of a batch file or a publish API call.
type Item struct {
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

func ReadItems(r io.Reader) ([]Item, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("error parsing items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items to publish")
	}
	return items, nil
}

// Request combines the item with the configured accounts and encoding profiles.
func (i Item) Request(cfg config.Config) (model.PublishRequest, error) {
	kind, err := model.ParseMediaKind(i.Kind)
	if err != nil {
		return model.PublishRequest{}, err
	}
	req := model.PublishRequest{
		Kind:       kind,
		SourceURL:  i.URL,
		Caption:    i.Caption,
		HashSuffix: cfg.CaptionHashSuffix,
		PageID:     cfg.Graph.PageID,
		IGUserID:   cfg.Graph.InstagramUserID,
		APIVersion: cfg.Graph.APIVersion,
		Image:      model.ImageProfile(cfg.Image),
		Video:      model.VideoProfile(cfg.Video),
	}
	return req, req.Validate()
}

// NewPublisher wires the publisher to ffmpeg, the HTTP downloader and host.
func NewPublisher(cfg config.Config, graphClient publisher.Graph, host publisher.FileHost) *publisher.Publisher {
	p := publisher.NewPublisher(graphClient, transcoder.NewFFmpeg(cfg.FFmpegPath), fetch.NewHTTPDownloader(), host)
	if cfg.Graph.PollInterval > 0 {
		p.PollInterval = cfg.Graph.PollInterval
	}
	if cfg.Graph.MaxPolls > 0 {
		p.MaxPolls = cfg.Graph.MaxPolls
	}
	return p
}

/*
NewFileHost picks where transcoded video is served from:

	s3:        presigned object in S3_BUCKET
	shared:    registry, whose middleware the host server installed
	dedicated: own listener on FILE_SERVER_ADDR

Shared mode without a registry (no host server running) falls back to dedicated.
*/
func NewFileHost(cfg config.Config, registry *fileserver.Registry, awsConfig aws.Config) (fileserver.Host, error) {
	mode := cfg.FileServer.Mode
	if mode == config.FileServerModeShared && registry == nil {
		log.Warn("shared file server mode needs the host server, falling back to a dedicated listener")
		mode = config.FileServerModeDedicated
	}

	switch mode {
	case config.FileServerModeS3:
		return fileserver.NewS3Host(s3.NewFromConfig(awsConfig), cfg.FileServer.S3Bucket, cfg.FileServer.S3Prefix, cfg.FileServer.S3PresignTTL), nil
	case config.FileServerModeShared:
		return fileserver.NewSharedHost(registry, baseProvider(cfg, cfg.ServerPort)), nil
	case config.FileServerModeDedicated:
		_, rawPort, err := net.SplitHostPort(cfg.FileServer.Addr)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", config.EnvfileKeyFileServerAddr, err)
		}
		port, err := strconv.Atoi(rawPort)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s port: %w", config.EnvfileKeyFileServerAddr, err)
		}
		return fileserver.NewDedicatedHost(cfg.FileServer.Addr, baseProvider(cfg, port)), nil
	default:
		return nil, fmt.Errorf("unidentified file server mode: %s", mode)
	}
}

func baseProvider(cfg config.Config, port int) fileserver.BaseProvider {
	if cfg.FileServer.PublicBaseURL != nil {
		return fileserver.StaticBase(cfg.FileServer.PublicBaseURL)
	}
	return fileserver.NewDiscoverBase(port)
}

