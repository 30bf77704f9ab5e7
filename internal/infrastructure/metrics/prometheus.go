// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "atelier"

var (
	// HTTPRequestsTotal counts gateway requests by chi route pattern.
	// Labels:
	//   - method: HTTP method
	//   - route: route pattern, e.g. /v1/presign; "unmatched" for 404s outside the router
	//   - status: response status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of gateway HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes gateway request latency per route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of gateway HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// UploadFilesTotal counts files that reached a terminal upload state.
	// Labels:
	//   - folder: events, banners, logos, videos
	//   - status: success, error
	UploadFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_files_total",
			Help:      "Total number of files uploaded through the upload queue",
		},
		[]string{"folder", "status"},
	)

	// UploadBatchDuration observes wall time of whole upload batches.
	UploadBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_batch_duration_seconds",
			Help:      "Duration of upload batches",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"folder"},
	)

	// PresignedFilesTotal counts presign entries issued by the gateway.
	// Labels:
	//   - status: issued, rejected
	PresignedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presigned_files_total",
			Help:      "Total number of presigned upload entries",
		},
		[]string{"status"},
	)

	// ObjectDeletesTotal tracks object store deletes.
	// Labels:
	//   - source: cascade, single, cover, gateway, worker
	//   - status: success, error
	ObjectDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_deletes_total",
			Help:      "Total number of object store delete attempts",
		},
		[]string{"source", "status"},
	)

	// CacheOperationsTotal tracks cache mirror operations.
	// Labels:
	//   - operation: read, write
	//   - status: hit, miss, success, error
	//   - cache_type: redis, memory
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "status", "cache_type"},
	)

	// DBQueriesTotal tracks database queries.
	// Labels:
	//   - query_type: select, insert, update, delete
	//   - table: events, photos, videos
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"query_type", "table"},
	)

	// SingleflightRequestsTotal tracks event remote id resolution coalescing.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)

	// MediaTasksTotal tracks processed media tasks.
	// Labels:
	//   - kind: delete_object, generate_thumbnail
	//   - status: success, retry, dropped
	MediaTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_tasks_total",
			Help:      "Total number of media tasks processed by the worker",
		},
		[]string{"kind", "status"},
	)
)

// RouteUnmatched labels requests no route pattern matched.
const RouteUnmatched = "unmatched"

// Generic status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Cache operation type constants.
const (
	CacheOpRead  = "read"
	CacheOpWrite = "write"
)

// Cache type constants.
const (
	CacheTypeRedis  = "redis"
	CacheTypeMemory = "memory"
)

// DB query type constants.
const (
	DBQuerySelect = "select"
	DBQueryInsert = "insert"
	DBQueryUpdate = "update"
	DBQueryDelete = "delete"
)

// Table name constants.
const (
	TableEvents = "events"
	TablePhotos = "photos"
	TableVideos = "videos"
)

// Object delete source constants.
const (
	DeleteSourceCascade = "cascade"
	DeleteSourceSingle  = "single"
	DeleteSourceCover   = "cover"
	DeleteSourceGateway = "gateway"
	DeleteSourceWorker  = "worker"
)

// Presign status constants.
const (
	PresignIssued   = "issued"
	PresignRejected = "rejected"
)

// Media task status constants.
const (
	TaskStatusSuccess = "success"
	TaskStatusRetry   = "retry"
	TaskStatusDropped = "dropped"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
