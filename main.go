package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/controllers"
	"github.com/anvil-platform/composer/internal/events"
	"github.com/anvil-platform/composer/internal/health"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(composerv1alpha1.AddToScheme(scheme))
}

func main() {
	var metricsAddr string
	var probeAddr string
	var grpcAddr string
	var natsURL string
	var enableLeaderElection bool

	flag.StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flag.StringVar(&grpcAddr, "grpc-health-address", ":9090", "The address the gRPC health service for commissioned models binds to.")
	flag.StringVar(&natsURL, "nats-url", "", "NATS server for lifecycle events. Events are not published when empty.")
	flag.BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager.")

	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "container.composer.anvil.platform",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	source, _ := os.Hostname()
	if source == "" {
		source = "composer"
	}

	var publisher events.Publisher
	if natsURL != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		publisher, err = events.NewNATSPublisher(connectCtx, natsURL, source)
		cancel()
		if err != nil {
			setupLog.Error(err, "unable to connect to NATS", "url", natsURL)
			os.Exit(1)
		}
		defer publisher.Close()
	}

	grpcServer, healthServer := health.NewServer()

	// No component classes are linked into the operator, so models are
	// commissioned without instances.
	reconciler := &controllers.ContainerReconciler{
		Client:    mgr.GetClient(),
		Scheme:    mgr.GetScheme(),
		Recorder:  mgr.GetEventRecorderFor("Container"),
		Health:    healthServer,
		Publisher: publisher,
		Source:    source,
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Container")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		setupLog.Error(err, "unable to listen", "address", grpcAddr)
		os.Exit(1)
	}

	ctx := ctrl.SetupSignalHandler()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		setupLog.Info("starting manager")
		return mgr.Start(gctx)
	})
	g.Go(func() error {
		setupLog.Info("serving gRPC health", "address", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := reconciler.Shutdown(shutdownCtx); err != nil {
		setupLog.Error(err, "problem decommissioning containers")
	}
	if runErr != nil {
		setupLog.Error(runErr, "problem running manager")
		os.Exit(1)
	}
}
