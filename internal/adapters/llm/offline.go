package llm

import (
	"context"
	"errors"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// ErrBackendUnavailable is what the offline backend always returns.
var ErrBackendUnavailable = errors.New("generative backend not configured")

// OfflineBackend never generates. With it every call degrades to the
// deterministic fallback content, which is how the service runs locally.
type OfflineBackend struct{}

func NewOfflineBackend() *OfflineBackend {
	return &OfflineBackend{}
}

func (OfflineBackend) Name() string {
	return "offline"
}

func (OfflineBackend) Generate(context.Context, domain.Prompt) (string, error) {
	return "", ErrBackendUnavailable
}
