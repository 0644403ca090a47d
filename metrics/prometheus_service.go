package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PullService serves the default registry for Prometheus to scrape.
type PullService struct {
	pullEndpoint string
	logger       *zap.Logger
}

func NewPullService(pullEndpoint string, logger *zap.Logger) *PullService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PullService{
		pullEndpoint: pullEndpoint,
		logger:       logger.Named("metrics"),
	}
}

// Run serves metrics until ctx is done.
func (s *PullService) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:           s.pullEndpoint,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics", zap.String("endpoint", s.pullEndpoint))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
