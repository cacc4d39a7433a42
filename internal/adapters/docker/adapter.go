package docker

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"go.uber.org/zap"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
)

// Adapter implements ports.ContainerEngine using the Docker SDK.
type Adapter struct {
	cli    *client.Client
	logger *zap.Logger
}

// NewAdapter creates a new Docker adapter instance. Failure here means the
// engine is not installed or the environment is unusable.
func NewAdapter(logger *zap.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli, logger: logger}, nil
}

// Ping confirms the daemon is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// RemoveByName force-removes any container carrying the given name,
// running or stopped. A name with no container is not an error.
func (a *Adapter) RemoveByName(ctx context.Context, name string) error {
	matches, err := a.listByName(ctx, name, true)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range matches {
		if err := a.cli.ContainerRemove(ctx, c.ID, types.ContainerRemoveOptions{Force: true}); err != nil {
			return fmt.Errorf("failed to remove container %s: %w", c.ID, err)
		}
		a.logger.Info("removed stale container", zap.String("name", name), zap.String("id", c.ID))
	}
	return nil
}

// PullImage pulls the image by reference and drains the progress stream so
// the pull runs to completion before returning.
func (a *Adapter) PullImage(ctx context.Context, ref string) error {
	reader, err := a.cli.ImagePull(ctx, ref, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("image pull interrupted: %w", err)
	}
	return nil
}

// HasImage reports whether an image with the exact reference exists locally.
func (a *Adapter) HasImage(ctx context.Context, ref string) (bool, error) {
	images, err := a.cli.ImageList(ctx, types.ImageListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", ref)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to list images: %w", err)
	}
	return len(images) > 0, nil
}

// Launch creates and starts a detached, auto-restarting container per spec.
func (a *Adapter) Launch(ctx context.Context, spec domain.LaunchSpec) (string, error) {
	guestPorts := []nat.Port{nat.Port(fmt.Sprintf("%d/tcp", spec.GuestPort))}
	if spec.PublishUDP {
		guestPorts = append(guestPorts, nat.Port(fmt.Sprintf("%d/udp", spec.GuestPort)))
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range guestPorts {
		exposed[p] = struct{}{}
		bindings[p] = []nat.PortBinding{{
			HostIP:   "0.0.0.0",
			HostPort: strconv.Itoa(int(spec.HostPort)),
		}}
	}

	resp, err := a.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        spec.Image,
			Cmd:          spec.Cmd,
			ExposedPorts: exposed,
		},
		&container.HostConfig{
			Binds:         []string{spec.WorkDir + ":" + spec.MountPath + ":ro"},
			PortBindings:  bindings,
			RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyAlways},
		},
		nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	return resp.ID, nil
}

// ListByName returns running containers whose name matches exactly.
func (a *Adapter) ListByName(ctx context.Context, name string) ([]domain.Container, error) {
	matches, err := a.listByName(ctx, name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return matches, nil
}

func (a *Adapter) listByName(ctx context.Context, name string, all bool) ([]domain.Container, error) {
	containers, err := a.cli.ContainerList(ctx, types.ContainerListOptions{
		All:     all,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, err
	}

	var result []domain.Container
	for _, c := range containers {
		// The name filter matches substrings; keep exact matches only.
		// Docker reports names with a leading slash.
		cname := ""
		for _, n := range c.Names {
			if n == "/"+name {
				cname = name
				break
			}
		}
		if cname == "" {
			continue
		}

		result = append(result, domain.Container{
			ID:     c.ID[:12], // Short ID
			Name:   cname,
			Image:  c.Image,
			Status: c.Status,
			State:  c.State,
		})
	}
	return result, nil
}
