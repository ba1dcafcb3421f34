package handlers

import (
	"math"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/pkg/logging"
)

const slotQueryMetricName = "clinivo_booking_slot_query_seconds"

// OpsSummary is the operator console overview: store counts plus a process
// latency snapshot lifted from the metrics registry.
type OpsSummary struct {
	Counts      map[booking.Status]int64 `json:"counts"`
	Undecided   int64                    `json:"undecided"`
	SlotLatency SlotLatencySnapshot      `json:"slotLatency"`
}

// SlotLatencySnapshot aggregates the slot-query histogram across units.
type SlotLatencySnapshot struct {
	Total   int64               `json:"total"`
	P95Ms   float64             `json:"p95Ms"`
	Buckets []SlotLatencyBucket `json:"buckets,omitempty"`
}

type SlotLatencyBucket struct {
	LeSeconds float64 `json:"leSeconds"`
	Count     int64   `json:"count"`
}

// OpsSummaryHandler serves GET /admin/bookings/summary.
type OpsSummaryHandler struct {
	svc      *booking.Service
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewOpsSummaryHandler creates the summary handler. A nil gatherer falls
// back to the default registry.
func NewOpsSummaryHandler(svc *booking.Service, gatherer prometheus.Gatherer, logger *logging.Logger) *OpsSummaryHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpsSummaryHandler{svc: svc, gatherer: gatherer, logger: logger}
}

// Summary returns store counts and the slot-query latency snapshot.
func (h *OpsSummaryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error("summary counts failed", "error", err)
		writeReason(w, booking.ReasonDBError)
		return
	}

	writeOK(w, http.StatusOK, OpsSummary{
		Counts:      counts,
		Undecided:   counts[booking.StatusPending] + counts[booking.StatusNeedsApproval],
		SlotLatency: snapshotSlotLatency(h.gatherer),
	})
}

// snapshotSlotLatency folds the per-unit histogram into one distribution and
// estimates p95 by linear interpolation within the owning bucket.
func snapshotSlotLatency(gatherer prometheus.Gatherer) SlotLatencySnapshot {
	mfs, err := gatherer.Gather()
	if err != nil {
		return SlotLatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == slotQueryMetricName {
			family = mf
			break
		}
	}
	if family == nil {
		return SlotLatencySnapshot{}
	}

	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		hist := metric.GetHistogram()
		if hist == nil {
			continue
		}
		sampleCount += hist.GetSampleCount()
		for _, b := range hist.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 {
		return SlotLatencySnapshot{}
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	buckets := make([]SlotLatencyBucket, 0, len(uppers))
	var prev uint64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		count := int64(0)
		if cum >= prev {
			count = int64(cum - prev)
		}
		prev = cum
		if math.IsInf(upper, 1) || count == 0 {
			continue
		}
		buckets = append(buckets, SlotLatencyBucket{LeSeconds: upper, Count: count})
	}

	return SlotLatencySnapshot{
		Total:   int64(sampleCount),
		P95Ms:   percentileMs(uppers, cumulativeByUpper, sampleCount, 0.95),
		Buckets: buckets,
	}
}

func percentileMs(uppers []float64, cumulativeByUpper map[float64]uint64, total uint64, q float64) float64 {
	rank := q * float64(total)
	var prevUpper float64
	var prevCum uint64
	for _, upper := range uppers {
		cum := cumulativeByUpper[upper]
		if float64(cum) >= rank {
			if math.IsInf(upper, 1) {
				return prevUpper * 1000
			}
			bucketCount := cum - prevCum
			if bucketCount == 0 {
				return upper * 1000
			}
			frac := (rank - float64(prevCum)) / float64(bucketCount)
			return (prevUpper + frac*(upper-prevUpper)) * 1000
		}
		if !math.IsInf(upper, 1) {
			prevUpper = upper
		}
		prevCum = cum
	}
	return prevUpper * 1000
}
