package infrastructure

import (
	"context"

	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

// BackendRouter dispatches each URL to the structured or impersonated
// backend. Both sides satisfy the same contract, so callers never know which
// one served them.
type BackendRouter struct {
	standard    domain.MediaBackend
	impersonate domain.MediaBackend
}

// NewBackendRouter wires the default backend pair for a configuration
func NewBackendRouter(cfg domain.BackendConfig, logger *zap.Logger) *BackendRouter {
	return &BackendRouter{
		standard:    NewYTDLPBackend(cfg, logger),
		impersonate: NewImpersonationBackend(cfg, "chrome", logger),
	}
}

func (r *BackendRouter) pick(url string) domain.MediaBackend {
	if domain.NeedsImpersonation(url) {
		return r.impersonate
	}
	return r.standard
}

// Resolve implements domain.MediaBackend
func (r *BackendRouter) Resolve(ctx context.Context, url string, opts domain.ResolveOptions) (*domain.Metadata, error) {
	return r.pick(url).Resolve(ctx, url, opts)
}

// Download implements domain.MediaBackend
func (r *BackendRouter) Download(ctx context.Context, url string, opts domain.DownloadOptions, onProgress domain.ProgressFunc) (string, error) {
	return r.pick(url).Download(ctx, url, opts, onProgress)
}
