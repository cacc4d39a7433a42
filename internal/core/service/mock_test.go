package service

import (
	"context"
	"errors"

	"github.com/alexallen1/sing-box-suger/internal/core/domain"
)

// mockProber returns a configured address or error.
type mockProber struct {
	ip     string
	err    error
	called bool
}

func (m *mockProber) PublicIP(ctx context.Context) (string, error) {
	m.called = true
	return m.ip, m.err
}

// mockCreds records provisioning calls.
type mockCreds struct {
	secret        string
	loadErr       error
	secretCreated bool
	secretErr     error
	certCreated   bool
	certErr       error

	loadCalls   int
	secretCalls int
	certCalls   int
}

func (m *mockCreds) LoadSecret() (string, error) {
	m.loadCalls++
	if m.loadErr != nil {
		return "", m.loadErr
	}
	return m.secret, nil
}

func (m *mockCreds) EnsureSecret() (string, bool, error) {
	m.secretCalls++
	return m.secret, m.secretCreated, m.secretErr
}

func (m *mockCreds) EnsureCertificate() (bool, error) {
	m.certCalls++
	return m.certCreated, m.certErr
}

// mockWriter captures the rendered document.
type mockWriter struct {
	written *domain.ServerConfig
	err     error
}

func (m *mockWriter) Write(cfg domain.ServerConfig) error {
	m.written = &cfg
	return m.err
}

// mockEngine scripts every engine operation and records call order.
type mockEngine struct {
	pingErr   error
	removeErr error
	pullErr   error
	hasImage  bool
	hasErr    error
	launchID  string
	launchErr error
	running   []domain.Container
	listErr   error

	calls      []string
	lastSpec   domain.LaunchSpec
	lastPulled string
}

func (m *mockEngine) Ping(ctx context.Context) error {
	m.calls = append(m.calls, "ping")
	return m.pingErr
}

func (m *mockEngine) RemoveByName(ctx context.Context, name string) error {
	m.calls = append(m.calls, "remove:"+name)
	return m.removeErr
}

func (m *mockEngine) PullImage(ctx context.Context, ref string) error {
	m.calls = append(m.calls, "pull:"+ref)
	m.lastPulled = ref
	return m.pullErr
}

func (m *mockEngine) HasImage(ctx context.Context, ref string) (bool, error) {
	m.calls = append(m.calls, "has:"+ref)
	return m.hasImage, m.hasErr
}

func (m *mockEngine) Launch(ctx context.Context, spec domain.LaunchSpec) (string, error) {
	m.calls = append(m.calls, "launch:"+spec.Name)
	m.lastSpec = spec
	if m.launchErr != nil {
		return "", m.launchErr
	}
	return m.launchID, nil
}

func (m *mockEngine) ListByName(ctx context.Context, name string) ([]domain.Container, error) {
	m.calls = append(m.calls, "list:"+name)
	return m.running, m.listErr
}

// mockBuilder records build requests.
type mockBuilder struct {
	ref     string
	err     error
	called  bool
	lastURL string
}

func (m *mockBuilder) BuildImage(ctx context.Context, repoURL, imageName string) (string, error) {
	m.called = true
	m.lastURL = repoURL
	if m.err != nil {
		return "", m.err
	}
	if m.ref != "" {
		return m.ref, nil
	}
	return imageName, nil
}

var errBoom = errors.New("boom")
