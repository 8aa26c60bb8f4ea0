package webhook

import (
	"context"
	"crypto/tls"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	goerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"knative.dev/pkg/webhook/certificates/resources"

	"github.com/false-systems/kulta/internal/objectstore"
)

const (
	certExpiration = 10 * 365 * 24 * time.Hour
	tlsCertFile    = "tls.crt"
	tlsKeyFile     = "tls.key"
	caCertFile     = "ca.crt"
)

// EnsureSecret guarantees that secretName in namespace holds a CA and
// server certificate for serviceName, generating both with
// knative.dev/pkg's webhook cert helper the first time it is called
// (spec.md §D / original_source's src/server/health.rs pairing of a fixed
// identity with a self-signed chain) and leaving an existing secret
// untouched on every subsequent call.
func EnsureSecret(ctx context.Context, store objectstore.Store, namespace, serviceName, secretName string) error {
	var existing corev1.Secret
	err := store.Get(ctx, client.ObjectKey{Namespace: namespace, Name: secretName}, &existing)
	if err == nil {
		return nil
	}
	if !objectstore.IsNotFound(err) {
		return goerrors.Wrap(err, "get webhook cert secret")
	}

	serverKey, serverCert, caCert, err := resources.CreateCerts(ctx, serviceName, namespace, time.Now().Add(certExpiration))
	if err != nil {
		return goerrors.Wrap(err, "generate webhook certs")
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: secretName, Namespace: namespace},
		Type:       corev1.SecretTypeTLS,
		Data: map[string][]byte{
			tlsKeyFile:  serverKey,
			tlsCertFile: serverCert,
			caCertFile:  caCert,
		},
	}
	if err := store.Create(ctx, secret); err != nil && !objectstore.IsAlreadyExists(err) {
		return goerrors.Wrap(err, "create webhook cert secret")
	}
	return nil
}

// CertManager serves the webhook server's TLS certificate from files
// mounted from the secret EnsureSecret maintains, reloading it whenever
// those files change on disk (a Secret's volume mount updates in place on
// rotation, it is never re-created).
type CertManager struct {
	mu      sync.RWMutex
	cert    *tls.Certificate
	certDir string
	log     *logrus.Entry
}

// NewCertManager loads the initial certificate from certDir, which must
// already contain tls.crt and tls.key (a projected Secret volume).
func NewCertManager(certDir string, log *logrus.Entry) (*CertManager, error) {
	m := &CertManager{certDir: certDir, log: log}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CertManager) reload() error {
	cert, err := tls.LoadX509KeyPair(filepath.Join(m.certDir, tlsCertFile), filepath.Join(m.certDir, tlsKeyFile))
	if err != nil {
		return goerrors.Wrap(err, "load webhook certificate")
	}
	m.mu.Lock()
	m.cert = &cert
	m.mu.Unlock()
	return nil
}

// GetCertificate satisfies tls.Config.GetCertificate, returning whatever
// certificate is currently loaded.
func (m *CertManager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cert, nil
}

// Watch blocks, reloading the certificate on every write or create event
// under certDir until ctx is cancelled. A reload failure is logged and the
// previous certificate keeps serving rather than the watcher exiting.
func (m *CertManager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerrors.Wrap(err, "create cert watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(m.certDir); err != nil {
		return goerrors.Wrap(err, "watch cert dir")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := m.reload(); err != nil {
				m.log.WithError(err).Warn("failed to reload rotated webhook certificate; serving the previous one")
			} else {
				m.log.Info("reloaded webhook certificate")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.log.WithError(err).Warn("webhook certificate watcher error")
		}
	}
}
