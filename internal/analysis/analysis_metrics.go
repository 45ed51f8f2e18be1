package analysis

import "github.com/prometheus/client_golang/prometheus"

// Hooks are the observation points the pipeline fires as it runs. Zero
// value is a valid no-op.
type Hooks struct {
	// OnLLMCall fires per model attempt with token usage and outcome
	// ("ok" or "error").
	OnLLMCall func(inputTokens, outputTokens int, duration float64, outcome string)

	// OnAnalysis fires once per Analyze call with the terminal outcome
	// ("ok", "fallback", "error") and whether it was served from cache.
	OnAnalysis func(outcome string, cached bool, duration float64)

	// OnFallback fires when a fallback result is substituted, with the
	// degraded reason.
	OnFallback func(reason string)
}

// Metrics holds Prometheus metrics for the analysis pipeline.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	LLMCallsTotal    *prometheus.CounterVec
	LLMDuration      prometheus.Histogram
	LLMTokensIn      prometheus.Counter
	LLMTokensOut     prometheus.Counter
}

// NewMetrics registers and returns analysis metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuelens_analyses_total",
			Help: "Total analysis requests by terminal outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "issuelens_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuelens_cache_lookups_total",
			Help: "Cache lookups by result (hit or miss).",
		}, []string{"result"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuelens_fallbacks_total",
			Help: "Fallback results substituted, by degraded reason.",
		}, []string{"reason"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issuelens_llm_calls_total",
			Help: "Individual model attempts by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "issuelens_llm_call_duration_seconds",
			Help:    "Duration of individual model calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "issuelens_llm_tokens_input_total",
			Help: "Total model input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "issuelens_llm_tokens_output_total",
			Help: "Total model output tokens consumed.",
		}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.CacheLookups,
		m.FallbacksTotal,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.LLMTokensIn,
		m.LLMTokensOut,
	)

	return m
}

// Hooks returns a Hooks that increments the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64, outcome string) {
			m.LLMCallsTotal.WithLabelValues(outcome).Inc()
			m.LLMDuration.Observe(duration)
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
		},
		OnAnalysis: func(outcome string, cached bool, duration float64) {
			m.AnalysesTotal.WithLabelValues(outcome).Inc()
			m.AnalysisDuration.WithLabelValues(outcome).Observe(duration)
			result := "miss"
			if cached {
				result = "hit"
			}
			m.CacheLookups.WithLabelValues(result).Inc()
		},
		OnFallback: func(reason string) {
			m.FallbacksTotal.WithLabelValues(reason).Inc()
		},
	}
}
