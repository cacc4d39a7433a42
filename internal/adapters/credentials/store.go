// Package credentials provisions the per-deployment identity: the secret
// embedded in the proxy config and the self-signed TLS pair the listener
// terminates with. Both operations are idempotent across reruns.
package credentials

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexallen1/sing-box-suger/internal/config"
)

const rsaKeyBits = 2048

// FileStore keeps all credential material as flat files in the work directory.
type FileStore struct {
	secretPath string
	certPath   string
	keyPath    string
	commonName string
	validity   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewFileStore creates a store over the work directory described by cfg.
func NewFileStore(cfg config.DeployConfig) *FileStore {
	return &FileStore{
		secretPath: cfg.SecretPath(),
		certPath:   cfg.CertPath(),
		keyPath:    cfg.KeyPath(),
		commonName: cfg.CertCN,
		validity:   time.Duration(cfg.CertDays) * 24 * time.Hour,
		now:        time.Now,
	}
}

// LoadSecret returns the persisted secret verbatim without creating one.
// The loaded value is deliberately not validated: whatever the operator put
// there is the secret. A missing file surfaces as fs.ErrNotExist.
func (s *FileStore) LoadSecret() (string, error) {
	data, err := os.ReadFile(s.secretPath)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// EnsureSecret loads the persisted secret, or generates a fresh UUID and
// persists it when no secret file exists yet.
func (s *FileStore) EnsureSecret() (string, bool, error) {
	secret, err := s.LoadSecret()
	if err == nil {
		return secret, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}

	secret = uuid.NewString()
	if err := os.WriteFile(s.secretPath, []byte(secret+"\n"), 0600); err != nil {
		return "", false, fmt.Errorf("persist secret: %w", err)
	}
	return secret, true, nil
}

// EnsureCertificate provisions the self-signed pair. Both files present
// means already provisioned and neither is touched. A half-present pair
// (one file missing) is treated as corrupt and regenerated together, so a
// rerun can never leave a key without its certificate.
func (s *FileStore) EnsureCertificate() (bool, error) {
	certExists := fileExists(s.certPath)
	keyExists := fileExists(s.keyPath)
	if certExists && keyExists {
		return false, nil
	}

	if err := s.generate(); err != nil {
		return false, fmt.Errorf("generate certificate pair: %w", err)
	}
	return true, nil
}

func (s *FileStore) generate() error {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("generate RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generate serial: %w", err)
	}

	now := s.now()
	tpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: s.commonName},
		NotBefore:             now,
		NotAfter:              now.Add(s.validity),
		SignatureAlgorithm:    x509.SHA256WithRSA,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:              []string{s.commonName},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	if err := os.WriteFile(s.certPath, certPEM, 0644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	if err := os.WriteFile(s.keyPath, keyPEM, 0600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
