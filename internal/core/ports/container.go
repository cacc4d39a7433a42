package ports

import (
	"context"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
)

// ContainerEngine defines the container operations the deployer needs.
// This interface allows us to switch between Docker, Podman, or Kubernetes
// without changing the orchestration logic.
type ContainerEngine interface {
	// Ping confirms the engine is installed and its daemon is reachable.
	Ping(ctx context.Context) error
	// RemoveByName force-removes any container (running or stopped) that
	// carries the given name. Removing a name that does not exist is not
	// an error.
	RemoveByName(ctx context.Context, name string) error
	// PullImage pulls the image by reference, blocking until complete.
	PullImage(ctx context.Context, ref string) error
	// HasImage reports whether an image with the exact reference exists
	// locally.
	HasImage(ctx context.Context, ref string) (bool, error)
	// Launch creates and starts a detached, auto-restarting container and
	// returns its ID.
	Launch(ctx context.Context, spec domain.LaunchSpec) (string, error)
	// ListByName returns running containers whose name matches exactly.
	ListByName(ctx context.Context, name string) ([]domain.Container, error)
}
