package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acyclic_parsing_seconds",
		Help:    "Time spent parsing and walking a module for hot symbol usage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acyclic_graph_nodes_total",
		Help: "Number of modules in the most recently built dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acyclic_graph_edges_total",
		Help: "Number of dependency edges in the most recently built dependency graph.",
	})

	CyclicNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acyclic_cyclic_nodes_total",
		Help: "Number of modules left after pruning everything that cannot be on a cycle.",
	})

	EdgesCutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_edges_cut_total",
		Help: "Total number of cold dependency edges banned to break cycles.",
	})

	UnresolvableCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_unresolvable_cycles_total",
		Help: "Total number of builds that failed because only hot edges remained on a cycle.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "acyclic_analysis_seconds",
		Help:    "Time spent on high-level planning tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	AnalysisCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_analysis_cache_hits_total",
		Help: "Hot-usage lookups served from the analysis cache.",
	})

	AnalysisCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_analysis_cache_misses_total",
		Help: "Hot-usage lookups that required parsing the module.",
	})

	LazyInitializationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_lazy_initializations_total",
		Help: "Module initializers run by lazy proxies.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acyclic_rebuilds_throttled_total",
		Help: "Watch-mode rebuilds delayed by the rebuild rate limiter.",
	})
)
