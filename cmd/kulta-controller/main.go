// Package main wires the Rollout reconciler, the lease-based leader
// elector, and the metrics/healthz/webhook HTTP surfaces into one
// controller-runtime manager process, configured entirely from the
// environment (internal/config).
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/zapr"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/false-systems/kulta/api/v1alpha1"
	"github.com/false-systems/kulta/api/v1beta1"
	"github.com/false-systems/kulta/internal/abeval"
	"github.com/false-systems/kulta/internal/advisor"
	"github.com/false-systems/kulta/internal/analysis"
	"github.com/false-systems/kulta/internal/clock"
	"github.com/false-systems/kulta/internal/config"
	"github.com/false-systems/kulta/internal/controller"
	"github.com/false-systems/kulta/internal/events"
	healthzserver "github.com/false-systems/kulta/internal/healthz"
	"github.com/false-systems/kulta/internal/objectstore"
	"github.com/false-systems/kulta/internal/observability/metrics"
	kwebhook "github.com/false-systems/kulta/internal/webhook"
)

const (
	metricsBindAddress = ":9090"
	healthzBindAddress = ":8081"
	webhookBindAddress = ":8443"
	webhookCertDir     = "/tmp/k8s-webhook-server/serving-certs"
	webhookTLSSecret   = "kulta-webhook-tls"
	leaseName          = "kulta-controller-lease"
	prometheusTimeout  = 10 * time.Second
	cdEventTimeout     = 5 * time.Second
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1beta1.AddToScheme(scheme))
	utilruntime.Must(v1alpha1.AddToScheme(scheme))
}

func main() {
	zapLog, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build zap logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLog.Sync() }()
	ctrl.SetLogger(zapr.NewLogger(zapLog))
	setupLog := ctrl.Log.WithName("setup")

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := log.WithField("component", "kulta-controller")

	cfg, err := config.Load()
	if err != nil {
		setupLog.Error(err, "invalid configuration")
		os.Exit(1)
	}

	restConfig := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: "0", // internal/observability/metrics owns /metrics instead
		},
		HealthProbeBindAddress: "0", // internal/healthz owns /healthz and /readyz instead
		LeaderElection:         false, // gated instead by internal/controller.LeaderElector
		Cache: cache.Options{
			DefaultNamespaces: cacheNamespaces(cfg.Namespace),
		},
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	store := objectstore.NewClientStore(mgr.GetClient())
	realClock := clock.New()

	querier := analysis.NewPrometheusQuerier(cfg.PrometheusAddress, prometheusTimeout, entry.WithField("component", "analysis"))
	analyzer := analysis.NewAnalyzer(querier, realClock, entry.WithField("component", "analysis"))
	abEvaluator := abeval.NewEvaluator(querier)

	var sink events.CDSink = events.NoopCDSink{}
	if cfg.CDEventsEnabled {
		sink = events.NewHTTPCDSink(cfg.CDEventsSinkURL, cdEventTimeout)
	}
	writer := events.NewOccurrenceWriter(cfg.OccurrenceDir, entry.WithField("component", "occurrence"))
	emitter := events.NewEmitter(sink, writer, realClock, cfg.ClusterName, entry.WithField("component", "events"))

	advisorResolver := advisor.NewResolver(entry.WithField("component", "advisor"), nil)

	m := metrics.New()
	reconciler := controller.NewRolloutReconciler(store, realClock, analyzer, abEvaluator, emitter, advisorResolver, entry.WithField("component", "reconciler"))
	reconciler.Metrics = m

	if cfg.LeaderElection {
		elector := controller.NewLeaderElector(store, realClock, cfg.PodNamespace, leaseName, entry.WithField("component", "leader-elector"))
		reconciler.Elector = elector
		if err := mgr.Add(leaderElectorRunnable{elector}); err != nil {
			setupLog.Error(err, "unable to register leader elector")
			os.Exit(1)
		}
	}

	if err := reconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create rollout controller")
		os.Exit(1)
	}

	// /metrics gets its own dedicated port below; healthz only needs
	// /healthz and /readyz.
	hs := healthzserver.NewServer(nil)

	// No OPA module path is part of spec.md §6's closed environment-
	// variable set, so the extension policy hook in internal/validation
	// stays nil until that changes.
	ws := kwebhook.NewServer(nil, nil, []string{"*"}, entry.WithField("component", "webhook"))

	ctx := ctrl.SetupSignalHandler()

	go runHTTPServer(ctx, healthzBindAddress, hs, entry.WithField("server", "healthz"))
	go runHTTPServer(ctx, metricsBindAddress, m.Handler(), entry.WithField("server", "metrics"))
	go runWebhookServer(ctx, cfg, store, ws, entry.WithField("server", "webhook"))

	hs.MarkReady()
	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "manager exited with an error")
		hs.MarkNotReady()
		os.Exit(1)
	}
	hs.MarkNotReady()
}

func cacheNamespaces(namespace string) map[string]cache.Config {
	if namespace == "" {
		return nil
	}
	return map[string]cache.Config{namespace: {}}
}

func runHTTPServer(ctx context.Context, addr string, handler http.Handler, log *logrus.Entry) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.WithField("address", addr).Info("starting http server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("http server exited with an error")
	}
}

func runWebhookServer(ctx context.Context, cfg config.Config, store objectstore.Store, ws *kwebhook.Server, log *logrus.Entry) {
	if !cfg.WebhookTLS {
		runHTTPServer(ctx, webhookBindAddress, ws, log)
		return
	}

	if err := kwebhook.EnsureSecret(ctx, store, cfg.Namespace, cfg.ServiceName, webhookTLSSecret); err != nil {
		log.WithError(err).Error("failed to provision webhook TLS material")
		return
	}

	certManager, err := kwebhook.NewCertManager(webhookCertDir, log)
	if err != nil {
		log.WithError(err).Error("failed to load webhook TLS certificate")
		return
	}
	go func() {
		if err := certManager.Watch(ctx); err != nil {
			log.WithError(err).Warn("certificate watcher stopped")
		}
	}()

	srv := &http.Server{
		Addr:    webhookBindAddress,
		Handler: ws,
		TLSConfig: &tls.Config{
			GetCertificate: certManager.GetCertificate,
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.WithField("address", webhookBindAddress).Info("starting webhook https server")
	if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("webhook server exited with an error")
	}
}

// leaderElectorRunnable adapts *controller.LeaderElector to
// manager.Runnable so the manager's own lifecycle starts and stops the
// election loop alongside the reconciler it gates.
type leaderElectorRunnable struct {
	elector *controller.LeaderElector
}

func (r leaderElectorRunnable) Start(ctx context.Context) error {
	r.elector.Run(ctx)
	return nil
}
