package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picpal_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// UploadsTotal counts media uploads by outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picpal_uploads_total",
		Help: "Total number of media uploads by outcome",
	}, []string{"outcome"})

	// MediaStoreFailures counts media store operations that failed, by operation.
	MediaStoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "picpal_media_store_failures_total",
		Help: "Total number of failed media store operations",
	}, []string{"operation"})
)
