package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool metrics
	PoolCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sor_pool_count",
		Help: "Number of parsed pools in the cached pool set",
	})

	PoolsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_pools_skipped_total",
			Help: "Raw pools that could not be parsed into routable pools",
		},
		[]string{"pool_type"},
	)

	PoolSyncLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sor_pool_sync_lag_blocks",
		Help: "Blocks between the chain head and the block the pool data provider synced to",
	})

	PoolRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_pool_refreshes_total",
			Help: "Pool set refreshes by outcome",
		},
		[]string{"status"},
	)

	// Graph metrics
	GraphBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sor_graph_builds_total",
		Help: "Total number of path graph builds",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sor_graph_edges",
		Help: "Directed edges in the last built path graph",
	})

	CandidatePaths = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sor_candidate_paths",
		Help:    "Candidate paths returned per query",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	ExcludedPaths = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sor_excluded_paths_total",
		Help: "Paths dropped because their liquidity limit could not be computed",
	})

	// Routing metrics
	RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sor_route_duration_seconds",
		Help:    "Best path search duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25},
	})

	SplitIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sor_split_iterations",
		Help:    "Path simulations run while splitting a swap",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	NoRoute = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sor_no_route_total",
		Help: "Route searches that found no feasible split",
	})

	// Quote metrics
	QuoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_quote_requests_total",
			Help: "Total number of quote requests",
		},
		[]string{"swap_kind", "status"},
	)

	QuoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sor_quote_duration_seconds",
			Help:    "Quote request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"swap_kind"},
	)

	QuoteCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_quote_cache_lookups_total",
			Help: "Routed swap cache lookups by result",
		},
		[]string{"result"},
	)

	PriceImpact = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sor_price_impact_bps",
			Help:    "Price impact in basis points",
			Buckets: []float64{0, 10, 50, 100, 300, 500, 1000, 5000, 10000},
		},
		[]string{"severity"},
	)

	// Provider metrics
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sor_provider_fetch_duration_seconds",
			Help:    "Pool data fetch duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_provider_retries_total",
			Help: "Retried pool data requests",
		},
		[]string{"provider"},
	)

	OnChainCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_onchain_calls_total",
			Help: "eth_call requests by method and outcome",
		},
		[]string{"method", "status"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sor_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
