package ports

import (
	"context"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
)

// AddressProber learns the host's externally reachable IPv4 address.
type AddressProber interface {
	// PublicIP returns the address or an error when both lookup services
	// failed. Callers decide how to degrade.
	PublicIP(ctx context.Context) (string, error)
}

// CredentialStore provisions the persistent identity material under the
// work directory. The Ensure operations are idempotent across reruns.
type CredentialStore interface {
	// LoadSecret returns the persisted secret without creating one.
	// A missing secret file surfaces as fs.ErrNotExist.
	LoadSecret() (string, error)
	// EnsureSecret loads the persisted secret, creating it first if absent.
	// created reports whether a new secret was generated on this call.
	EnsureSecret() (secret string, created bool, err error)
	// EnsureCertificate provisions the self-signed certificate/key pair,
	// skipping generation when both files already exist. created reports
	// whether the pair was (re)generated on this call.
	EnsureCertificate() (created bool, err error)
}

// ConfigWriter renders the server configuration document to disk,
// overwriting any previous one.
type ConfigWriter interface {
	Write(cfg domain.ServerConfig) error
}

// DeploymentReporter exposes read-only views of a deployment for the share
// API and the link/status commands. Nothing behind it mutates state.
type DeploymentReporter interface {
	Describe(ctx context.Context) (domain.Deployment, error)
	Status(ctx context.Context) ([]domain.Container, error)
	Tag(host string) string
}
