package ports

import "context"

// ImageBuilder defines operations for building container images from source code.
type ImageBuilder interface {
	// BuildImage clones a repository and builds an image from it.
	// It returns the reference of the built image or an error.
	BuildImage(ctx context.Context, repoURL string, imageName string) (string, error)
}
