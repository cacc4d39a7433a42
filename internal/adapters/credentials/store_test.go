package credentials

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io/fs"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexallen1/sing-box-suger/internal/config"
)

var uuidRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func testStore(t *testing.T) (*FileStore, config.DeployConfig) {
	t.Helper()
	cfg := config.DeployConfig{
		WorkDir:  t.TempDir(),
		CertCN:   "proxy.example.com",
		CertDays: 365,
	}
	return NewFileStore(cfg), cfg
}

func TestEnsureSecret_CreatesUUID(t *testing.T) {
	s, cfg := testStore(t)

	secret, created, err := s.EnsureSecret()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, uuidRe, secret)

	data, err := os.ReadFile(cfg.SecretPath())
	require.NoError(t, err)
	assert.Equal(t, secret+"\n", string(data))
}

func TestEnsureSecret_ReusesExisting(t *testing.T) {
	s, _ := testStore(t)

	first, created, err := s.EnsureSecret()
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := s.EnsureSecret()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

func TestLoadSecret_NotProvisioned(t *testing.T) {
	s, cfg := testStore(t)

	_, err := s.LoadSecret()
	require.ErrorIs(t, err, fs.ErrNotExist)
	assert.NoFileExists(t, cfg.SecretPath(), "loading must never create the secret")
}

func TestLoadSecret_ReturnsPersisted(t *testing.T) {
	s, cfg := testStore(t)
	require.NoError(t, os.WriteFile(cfg.SecretPath(), []byte("persisted\n"), 0600))

	secret, err := s.LoadSecret()
	require.NoError(t, err)
	assert.Equal(t, "persisted", secret)
}

func TestEnsureSecret_NoFormatValidation(t *testing.T) {
	s, cfg := testStore(t)
	require.NoError(t, os.WriteFile(cfg.SecretPath(), []byte("operator-chosen-password\n"), 0600))

	secret, created, err := s.EnsureSecret()
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "operator-chosen-password", secret)
}

func TestEnsureCertificate_GeneratesValidPair(t *testing.T) {
	s, cfg := testStore(t)

	created, err := s.EnsureCertificate()
	require.NoError(t, err)
	assert.True(t, created)

	certPEM, err := os.ReadFile(cfg.CertPath())
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)

	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "proxy.example.com", cert.Subject.CommonName)
	assert.Equal(t, cert.Subject.String(), cert.Issuer.String(), "certificate must be self-signed")
	assert.Equal(t, x509.SHA256WithRSA, cert.SignatureAlgorithm)

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	require.True(t, ok, "expected an RSA public key")
	assert.Equal(t, 2048, pub.N.BitLen())

	wantValidity := 365 * 24 * time.Hour
	assert.Equal(t, wantValidity, cert.NotAfter.Sub(cert.NotBefore))

	keyInfo, err := os.Stat(cfg.KeyPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), keyInfo.Mode().Perm())

	keyPEM, err := os.ReadFile(cfg.KeyPath())
	require.NoError(t, err)
	keyBlock, _ := pem.Decode(keyPEM)
	require.NotNil(t, keyBlock)
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)
	assert.Equal(t, pub.N, key.PublicKey.N, "key must match the certificate")
}

func TestEnsureCertificate_SkipsWhenBothExist(t *testing.T) {
	s, cfg := testStore(t)

	created, err := s.EnsureCertificate()
	require.NoError(t, err)
	require.True(t, created)

	certBefore, err := os.ReadFile(cfg.CertPath())
	require.NoError(t, err)
	keyBefore, err := os.ReadFile(cfg.KeyPath())
	require.NoError(t, err)
	certStatBefore, err := os.Stat(cfg.CertPath())
	require.NoError(t, err)
	keyStatBefore, err := os.Stat(cfg.KeyPath())
	require.NoError(t, err)

	created, err = s.EnsureCertificate()
	require.NoError(t, err)
	assert.False(t, created)

	certAfter, err := os.ReadFile(cfg.CertPath())
	require.NoError(t, err)
	keyAfter, err := os.ReadFile(cfg.KeyPath())
	require.NoError(t, err)
	assert.Equal(t, certBefore, certAfter)
	assert.Equal(t, keyBefore, keyAfter)

	// A rerun must not touch the files at all, timestamps included.
	certStatAfter, err := os.Stat(cfg.CertPath())
	require.NoError(t, err)
	keyStatAfter, err := os.Stat(cfg.KeyPath())
	require.NoError(t, err)
	assert.Equal(t, certStatBefore.ModTime(), certStatAfter.ModTime())
	assert.Equal(t, keyStatBefore.ModTime(), keyStatAfter.ModTime())
}

func TestEnsureCertificate_RegeneratesHalfPair(t *testing.T) {
	s, cfg := testStore(t)

	created, err := s.EnsureCertificate()
	require.NoError(t, err)
	require.True(t, created)

	// Lose the key; the pair must be rebuilt together on the next run.
	require.NoError(t, os.Remove(cfg.KeyPath()))
	certBefore, err := os.ReadFile(cfg.CertPath())
	require.NoError(t, err)

	created, err = s.EnsureCertificate()
	require.NoError(t, err)
	assert.True(t, created)

	certAfter, err := os.ReadFile(cfg.CertPath())
	require.NoError(t, err)
	assert.NotEqual(t, certBefore, certAfter, "certificate must be regenerated with its key")
	assert.FileExists(t, cfg.KeyPath())
}
