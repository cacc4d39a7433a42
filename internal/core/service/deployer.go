// Package service orchestrates a deployment run: probe the environment,
// provision credentials, render the config, launch the container.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/alexallen1/sing-box-suger/internal/config"
	"github.com/alexallen1/sing-box-suger/internal/core/domain"
	"github.com/alexallen1/sing-box-suger/internal/core/ports"
)

// Fatal error categories. Everything else either degrades with a warning
// (IP lookup, stale-container removal) or is wrapped at the call site.
var (
	// ErrEngineUnavailable means the container engine is missing or its
	// daemon is down. Raised before any file is generated.
	ErrEngineUnavailable = errors.New("container engine unavailable")
	// ErrNoImage means the pull failed and no local copy of the exact
	// reference exists either.
	ErrNoImage = errors.New("no usable image")
	// ErrNotDeployed means a read-only path was asked to describe a work
	// directory that has never been deployed to.
	ErrNotDeployed = errors.New("no deployment found")
)

// Deployer runs the four deployment stages strictly in order.
type Deployer struct {
	cfg     config.DeployConfig
	prober  ports.AddressProber
	creds   ports.CredentialStore
	writer  ports.ConfigWriter
	engine  ports.ContainerEngine
	builder ports.ImageBuilder // optional; nil means pull-only
	logger  *zap.Logger

	sleep func(time.Duration)
}

// NewDeployer creates the orchestrator with all dependencies injected.
// builder may be nil when build-from-source is not configured.
func NewDeployer(
	cfg config.DeployConfig,
	prober ports.AddressProber,
	creds ports.CredentialStore,
	writer ports.ConfigWriter,
	engine ports.ContainerEngine,
	builder ports.ImageBuilder,
	logger *zap.Logger,
) *Deployer {
	return &Deployer{
		cfg:     cfg,
		prober:  prober,
		creds:   creds,
		writer:  writer,
		engine:  engine,
		builder: builder,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Deploy executes a full run and returns the resulting deployment.
// The run is idempotent where it can be: an existing secret and certificate
// pair are reused, any previous container instance is replaced.
func (d *Deployer) Deploy(ctx context.Context) (domain.Deployment, error) {
	var dep domain.Deployment

	// Engine availability comes before any file generation so a missing
	// engine leaves the work directory untouched.
	if err := d.engine.Ping(ctx); err != nil {
		return dep, fmt.Errorf("%w: %v (is the Docker daemon running?)", ErrEngineUnavailable, err)
	}

	if err := os.MkdirAll(d.cfg.WorkDir, 0750); err != nil {
		return dep, fmt.Errorf("create work directory: %w", err)
	}

	dep.Host = d.resolveHost(ctx)
	dep.Port = d.cfg.HostPort
	dep.SNI = d.cfg.CertCN

	secret, created, err := d.creds.EnsureSecret()
	if err != nil {
		return dep, fmt.Errorf("provision secret: %w", err)
	}
	dep.Secret = secret
	if created {
		d.logger.Info("generated new secret")
	} else {
		d.logger.Info("reusing existing secret")
	}

	certCreated, err := d.creds.EnsureCertificate()
	if err != nil {
		return dep, fmt.Errorf("provision certificate: %w", err)
	}
	if certCreated {
		d.logger.Info("generated self-signed certificate",
			zap.String("cn", d.cfg.CertCN), zap.Int("days", d.cfg.CertDays))
	}

	doc := domain.NewAnyTLSConfig(d.cfg.LogLevel, d.cfg.ListenPort, secret,
		d.cfg.CertCN, d.cfg.MountedCertPath(), d.cfg.MountedKeyPath())
	if err := d.writer.Write(doc); err != nil {
		return dep, fmt.Errorf("write config: %w", err)
	}
	d.logger.Info("config written", zap.String("path", d.cfg.ConfigPath()))

	// Best-effort: a removal failure must not block the redeploy.
	if err := d.engine.RemoveByName(ctx, d.cfg.ContainerName); err != nil {
		d.logger.Warn("stale container removal failed, continuing", zap.Error(err))
	}

	image, err := d.acquireImage(ctx)
	if err != nil {
		return dep, err
	}

	id, err := d.engine.Launch(ctx, domain.LaunchSpec{
		Name:       d.cfg.ContainerName,
		Image:      image,
		HostPort:   d.cfg.HostPort,
		GuestPort:  d.cfg.ListenPort,
		PublishUDP: d.cfg.PublishUDP,
		WorkDir:    d.cfg.WorkDir,
		MountPath:  config.MountPath,
		Cmd:        []string{"run", "-c", d.cfg.MountedConfigPath()},
	})
	if err != nil {
		return dep, fmt.Errorf("launch container: %w", err)
	}
	dep.ContainerID = id
	d.logger.Info("container started",
		zap.String("name", d.cfg.ContainerName), zap.String("id", id))

	// Visual confirmation only; a container that crashes after this
	// window goes undetected.
	d.sleep(d.cfg.StartupGrace)
	running, err := d.engine.ListByName(ctx, d.cfg.ContainerName)
	switch {
	case err != nil:
		d.logger.Warn("post-start check failed", zap.Error(err))
	case len(running) == 0:
		d.logger.Warn("container not running after start, check its logs",
			zap.String("name", d.cfg.ContainerName))
	default:
		d.logger.Info("container running", zap.String("status", running[0].Status))
	}

	return dep, nil
}

// Describe rebuilds the deployment descriptor from persisted state. It is
// strictly read-only: a work directory that was never deployed to yields
// ErrNotDeployed instead of provisioning anything. The public IP is
// re-probed.
func (d *Deployer) Describe(ctx context.Context) (domain.Deployment, error) {
	secret, err := d.creds.LoadSecret()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Deployment{}, fmt.Errorf("%w: run \"sbsuger deploy\" first", ErrNotDeployed)
		}
		return domain.Deployment{}, fmt.Errorf("load secret: %w", err)
	}

	return domain.Deployment{
		Secret: secret,
		Host:   d.resolveHost(ctx),
		Port:   d.cfg.HostPort,
		SNI:    d.cfg.CertCN,
	}, nil
}

// Status reports the running containers under the reserved name.
func (d *Deployer) Status(ctx context.Context) ([]domain.Container, error) {
	if err := d.engine.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return d.engine.ListByName(ctx, d.cfg.ContainerName)
}

// Tag is the link fragment identifying this deployment in client UIs.
func (d *Deployer) Tag(host string) string {
	return d.cfg.ContainerName + "@" + host
}

func (d *Deployer) resolveHost(ctx context.Context) string {
	ip, err := d.prober.PublicIP(ctx)
	if err != nil {
		d.logger.Warn("public IP lookup failed, using placeholder; edit the link before importing",
			zap.Error(err))
		return domain.PlaceholderHost
	}
	d.logger.Info("public IP resolved", zap.String("ip", ip))
	return ip
}

// acquireImage runs stage 3: build from source when configured, otherwise
// pull with a cached-image fallback.
func (d *Deployer) acquireImage(ctx context.Context) (string, error) {
	if d.cfg.BuildRepo != "" && d.builder != nil {
		ref, err := d.builder.BuildImage(ctx, d.cfg.BuildRepo, d.cfg.Image)
		if err != nil {
			return "", fmt.Errorf("build image from %s: %w", d.cfg.BuildRepo, err)
		}
		return ref, nil
	}

	if err := d.engine.PullImage(ctx, d.cfg.Image); err != nil {
		d.logger.Warn("image pull failed, checking local cache", zap.Error(err))
		ok, listErr := d.engine.HasImage(ctx, d.cfg.Image)
		if listErr != nil {
			return "", fmt.Errorf("check local images: %w", listErr)
		}
		if !ok {
			return "", fmt.Errorf("%w: pull of %s failed and no local copy exists: %v",
				ErrNoImage, d.cfg.Image, err)
		}
		d.logger.Warn("using cached local image", zap.String("image", d.cfg.Image))
	}
	return d.cfg.Image, nil
}
