package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Writes tracks payloads written by resource table.
	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_store_writes_total",
			Help: "Total payloads written to the resource store by table",
		},
		[]string{"table"},
	)

	// DuplicateWrites tracks writes dropped by the content-hash dedup.
	DuplicateWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_store_duplicate_writes_total",
			Help: "Total duplicate payloads dropped by the dedup constraint",
		},
		[]string{"table"},
	)

	// Reads tracks predicate reads by resource table.
	Reads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_store_reads_total",
			Help: "Total predicate reads against the resource store by table",
		},
		[]string{"table"},
	)
)
