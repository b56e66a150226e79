// Package telemetry exposes the engine's prometheus counters.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "schemalens"

var (
	// Registry is the collector registry the engine reports to. The CLI
	// gathers from it; tests read individual counters with testutil.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// SummarizeFailures counts summarize calls that returned an error or
	// panicked.
	// Labels: component, reason (error, panic)
	SummarizeFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "summarize_failures_total",
		Help:      "Summarize calls that failed during prompt assembly",
	}, []string{"component", "reason"})

	// DroppedContributions counts components that had nothing to say.
	// Labels: component
	DroppedContributions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "dropped_contributions_total",
		Help:      "Component contributions dropped because they were empty",
	}, []string{"component"})

	// Assemblies counts prompt assembly calls.
	Assemblies = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "assemblies_total",
		Help:      "Prompt assembly calls",
	})

	// AssemblyChars observes the size of assembled prompt blocks.
	AssemblyChars = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "prompt",
		Name:      "assembly_chars",
		Help:      "Characters in assembled prompt blocks",
		Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
	})

	// Substitutions counts persisted components replaced by their default.
	// Labels: component, reason (invalid, unknown_type)
	Substitutions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "persist",
		Name:      "substitutions_total",
		Help:      "Persisted components discarded or replaced on load",
	}, []string{"component", "reason"})

	// SchemasRegistered tracks how many schemas the default registry holds.
	SchemasRegistered = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "schemas",
		Help:      "Registered schema type+version pairs",
	})
)

// Failure reasons.
const (
	ReasonError       = "error"
	ReasonPanic       = "panic"
	ReasonInvalid     = "invalid"
	ReasonUnknownType = "unknown_type"
	ReasonDuplicate   = "duplicate"
)
