package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	composerControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_controller_reconcile_total",
			Help: "Number of reconciliations by controller.",
		},
		[]string{"controller"},
	)
	composerControllerReconcileErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_controller_reconcile_error_total",
			Help: "Number of reconciliation errors by controller.",
		},
		[]string{"controller"},
	)

	assemblyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_assembly_total",
			Help: "Number of container assemblies by result.",
		},
		[]string{"result"},
	)

	assemblyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "composer_assembly_duration_seconds",
			Help:    "Time taken to build and assemble a container.",
			Buckets: prometheus.DefBuckets,
		},
	)

	containerUnresolvedOptional = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "composer_container_unresolved_optional",
			Help: "Number of optional slots left without a provider in the last assembly of a container.",
		},
		[]string{"namespace", "container"},
	)

	containersCommissioned = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "composer_containers_commissioned",
			Help: "Number of containers currently commissioned by this process.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		composerControllerReconcileTotal,
		composerControllerReconcileErrorTotal,
		assemblyTotal,
		assemblyDuration,
		containerUnresolvedOptional,
		containersCommissioned,
	)
}
