package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/truemediaorg/crosspublisher/config"
	"github.com/truemediaorg/crosspublisher/fileserver"
	"github.com/truemediaorg/crosspublisher/model"
	"github.com/truemediaorg/crosspublisher/runner"
)

// Publish requests are a few hundred bytes of JSON
const maxPublishBodyBytes = 64 << 10

type ItemPublisher interface {
	Publish(ctx context.Context, req model.PublishRequest, force bool) runner.Outcome
}

// HostServer is the single public listener: healthcheck, publish API, and
// the served-file middleware in front of both.
type HostServer struct {
	Server http.Server
}

func NewHostServer(cfg config.Config, registry *fileserver.Registry, publisher ItemPublisher) HostServer {
	mux := http.NewServeMux()
	mux.Handle("POST /publish", handlePublish(cfg, publisher))
	mux.Handle("/", handleHealthcheck())

	// Installed exactly once; requests it doesn't own fall through to mux
	var handler http.Handler = mux
	if registry != nil {
		handler = registry.Middleware(mux)
	}

	return HostServer{
		Server: http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.ServerPort),
			Handler: handler,
		},
	}
}

func handleHealthcheck() http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			log.Debug("received healthcheck request")
			// This will have a status of 200
			fmt.Fprintf(w, "all good in the hood")
		},
	)
}

type publishAPIRequest struct {
	Item
	Force bool `json:"force"`
}

type publishAPIResponse struct {
	Result  *model.PublishResult `json:"result,omitempty"`
	Skipped bool                 `json:"skipped,omitempty"`
	Error   string               `json:"error,omitempty"`
}

func handlePublish(cfg config.Config, publisher ItemPublisher) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			var body publishAPIRequest
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPublishBodyBytes)).Decode(&body); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeJSON(w, http.StatusRequestEntityTooLarge, publishAPIResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
					return
				}
				writeJSON(w, http.StatusBadRequest, publishAPIResponse{Error: fmt.Sprintf("invalid JSON body: %v", err)})
				return
			}
			req, err := body.Item.Request(cfg)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, publishAPIResponse{Error: err.Error()})
				return
			}

			log.WithField("kind", req.Kind).WithField("source", req.SourceURL).Info("received publish request")
			// A dropped client must not stop a publish that may already be live on one side
			outcome := publisher.Publish(context.WithoutCancel(r.Context()), req, body.Force)
			if outcome.Err != nil {
				writeJSON(w, http.StatusBadGateway, publishAPIResponse{Error: outcome.Err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, publishAPIResponse{Result: outcome.Result, Skipped: outcome.Skipped})
		},
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debugf("error writing response: %v", err)
	}
}
