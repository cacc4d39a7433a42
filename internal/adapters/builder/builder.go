package builder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// Adapter implements ports.ImageBuilder: it clones a repository and builds
// the proxy image locally instead of pulling it from a registry. Used when
// the operator points SBS_BUILD_REPO at a sing-box Dockerfile repo.
type Adapter struct {
	cli    *client.Client
	logger *zap.Logger
}

// NewAdapter creates a builder backed by the local Docker daemon.
func NewAdapter(logger *zap.Logger) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli, logger: logger}, nil
}

// BuildImage clones repoURL and builds imageName from its Dockerfile.
func (a *Adapter) BuildImage(ctx context.Context, repoURL string, imageName string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "sbsuger-build-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	a.logger.Info("cloning build repository",
		zap.String("url", repoURL), zap.String("dir", tmpDir))
	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1, // Shallow clone for speed
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone repo: %w", err)
	}

	buildCtx, err := archive.TarWithOptions(tmpDir, &archive.TarOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}

	a.logger.Info("building image", zap.String("image", imageName))
	resp, err := a.cli.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{imageName},
		Dockerfile: "Dockerfile",
		Remove:     true, // Remove intermediate containers
	})
	if err != nil {
		return "", fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// The build only completes once the response stream is drained.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return "", fmt.Errorf("image build interrupted: %w", err)
	}

	return imageName, nil
}
