package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
)

// Names of the files the deployer owns inside the work directory. The same
// directory is bind-mounted into the container at MountPath, so the paths the
// rendered config refers to are always relative to MountPath.
const (
	ConfigFileName = "config.json"
	CertFileName   = "cert.pem"
	KeyFileName    = "private.key"
	SecretFileName = "uuid.txt"

	// MountPath is where the work directory appears inside the container.
	MountPath = "/etc/sing-box"
)

// Settings holds all configuration for a deployment run.
type Settings struct {
	Deploy DeployConfig
	Probe  ProbeConfig
	Share  ShareConfig
}

// DeployConfig describes the container and the material it is launched with.
type DeployConfig struct {
	WorkDir       string        `env:"SBS_WORK_DIR" envDefault:"/opt/sbsuger"`
	ContainerName string        `env:"SBS_CONTAINER_NAME" envDefault:"sbsuger-anytls"`
	Image         string        `env:"SBS_IMAGE" envDefault:"ghcr.io/sagernet/sing-box:latest"`
	BuildRepo     string        `env:"SBS_BUILD_REPO"` // git URL; when set, build instead of pull
	HostPort      uint16        `env:"SBS_HOST_PORT" envDefault:"8443"`
	ListenPort    uint16        `env:"SBS_LISTEN_PORT" envDefault:"8443"`
	PublishUDP    bool          `env:"SBS_PUBLISH_UDP" envDefault:"false"`
	CertCN        string        `env:"SBS_CERT_CN" envDefault:"www.bing.com"`
	CertDays      int           `env:"SBS_CERT_DAYS" envDefault:"3650"`
	LogLevel      string        `env:"SBS_LOG_LEVEL" envDefault:"info"`
	StartupGrace  time.Duration `env:"SBS_STARTUP_GRACE" envDefault:"2s"`
}

// ProbeConfig holds the public-IP lookup endpoints.
type ProbeConfig struct {
	PrimaryURL  string        `env:"SBS_PRIMARY_IP_URL" envDefault:"https://api.ipify.org"`
	FallbackURL string        `env:"SBS_FALLBACK_IP_URL" envDefault:"https://checkip.amazonaws.com"`
	Timeout     time.Duration `env:"SBS_PROBE_TIMEOUT" envDefault:"5s"`
}

// ShareConfig holds the share API server settings (serve mode only).
type ShareConfig struct {
	Addr string `env:"SBS_SERVE_ADDR" envDefault:":3000"`
}

// Load loads configuration from environment variables.
func Load() (*Settings, error) {
	cfg := &Settings{}

	if err := env.Parse(&cfg.Deploy); err != nil {
		return nil, fmt.Errorf("parsing deploy config: %w", err)
	}
	if err := env.Parse(&cfg.Probe); err != nil {
		return nil, fmt.Errorf("parsing probe config: %w", err)
	}
	if err := env.Parse(&cfg.Share); err != nil {
		return nil, fmt.Errorf("parsing share config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (s *Settings) Validate() error {
	if s.Deploy.WorkDir == "" {
		return fmt.Errorf("SBS_WORK_DIR must not be empty")
	}
	if s.Deploy.ContainerName == "" {
		return fmt.Errorf("SBS_CONTAINER_NAME must not be empty")
	}
	if s.Deploy.Image == "" && s.Deploy.BuildRepo == "" {
		return fmt.Errorf("one of SBS_IMAGE or SBS_BUILD_REPO is required")
	}
	if s.Deploy.HostPort == 0 || s.Deploy.ListenPort == 0 {
		return fmt.Errorf("SBS_HOST_PORT and SBS_LISTEN_PORT must be non-zero")
	}
	if s.Deploy.CertDays <= 0 {
		return fmt.Errorf("SBS_CERT_DAYS must be positive")
	}
	return nil
}

// ConfigPath returns the host-side path of the rendered config document.
func (c *DeployConfig) ConfigPath() string {
	return filepath.Join(c.WorkDir, ConfigFileName)
}

// CertPath returns the host-side path of the certificate.
func (c *DeployConfig) CertPath() string {
	return filepath.Join(c.WorkDir, CertFileName)
}

// KeyPath returns the host-side path of the private key.
func (c *DeployConfig) KeyPath() string {
	return filepath.Join(c.WorkDir, KeyFileName)
}

// SecretPath returns the host-side path of the persisted secret.
func (c *DeployConfig) SecretPath() string {
	return filepath.Join(c.WorkDir, SecretFileName)
}

// MountedConfigPath is the config path as the container process sees it.
func (c *DeployConfig) MountedConfigPath() string {
	return MountPath + "/" + ConfigFileName
}

// MountedCertPath is the certificate path as the container process sees it.
func (c *DeployConfig) MountedCertPath() string {
	return MountPath + "/" + CertFileName
}

// MountedKeyPath is the key path as the container process sees it.
func (c *DeployConfig) MountedKeyPath() string {
	return MountPath + "/" + KeyFileName
}
