package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Unit-of-work metrics
var (
	FlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_uow_flush_total",
			Help: "Total number of unit-of-work flush attempts",
		},
		[]string{"status"}, // "success", "conflict", "error"
	)

	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_uow_flush_duration_seconds",
			Help:    "Duration of a single unit-of-work flush attempt in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ConcurrencyConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_concurrency_conflicts_total",
			Help: "Total number of optimistic concurrency conflicts detected",
		},
		[]string{"table"},
	)

	ConcurrencyRetriesExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_concurrency_retries_exhausted_total",
			Help: "Total number of saves that gave up after the retry bound",
		},
		[]string{"table"},
	)
)

// Tag index metrics
var (
	TagsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_tags_created_total",
			Help: "Total number of tag rows created",
		},
	)

	OrphanTagsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_orphan_tags_deleted_total",
			Help: "Total number of unreferenced tag rows deleted",
		},
		[]string{"mode"}, // "sync", "sweep"
	)

	MetadataTagWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_metadata_tag_writes_total",
			Help: "Total number of metadata/tag association rows written",
		},
		[]string{"op"}, // "insert", "delete"
	)
)

// Cascade metrics
var (
	CascadeDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_cascade_deleted_rows_total",
			Help: "Total number of rows removed by cascade deletes",
		},
		[]string{"entity"}, // "album", "media_object", "metadata_item", "metadata_tag"
	)
)
