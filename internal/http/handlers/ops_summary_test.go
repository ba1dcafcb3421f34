package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/clinivo/booking-api/internal/booking"
	"github.com/clinivo/booking-api/internal/catalog"
	"github.com/clinivo/booking-api/internal/decision"
)

type stubGatherer struct {
	families []*dto.MetricFamily
}

func (s stubGatherer) Gather() ([]*dto.MetricFamily, error) {
	return s.families, nil
}

func ptrString(s string) *string    { return &s }
func ptrUint64(v uint64) *uint64    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

func histogramFamily() *dto.MetricFamily {
	metricType := dto.MetricType_HISTOGRAM
	return &dto.MetricFamily{
		Name: ptrString(slotQueryMetricName),
		Type: &metricType,
		Metric: []*dto.Metric{
			{
				Histogram: &dto.Histogram{
					SampleCount: ptrUint64(100),
					Bucket: []*dto.Bucket{
						{UpperBound: ptrFloat64(0.05), CumulativeCount: ptrUint64(80)},
						{UpperBound: ptrFloat64(0.1), CumulativeCount: ptrUint64(96)},
						{UpperBound: ptrFloat64(0.5), CumulativeCount: ptrUint64(100)},
					},
				},
			},
		},
	}
}

func TestOpsSummary(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	ctx := context.Background()
	for i, status := range []booking.Status{
		booking.StatusPending, booking.StatusPending,
		booking.StatusNeedsApproval, booking.StatusConfirmed,
	} {
		err := repo.Create(ctx, &booking.BookingRequest{ID: string(rune('a' + i)), Status: status})
		if err != nil {
			t.Fatal(err)
		}
	}
	svc := booking.NewService(repo, catalog.NewStatic(nil), decision.NewSigner(""), nil, nil, nil, "", time.Hour)
	h := NewOpsSummaryHandler(svc, stubGatherer{families: []*dto.MetricFamily{histogramFamily()}}, nil)

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var env struct {
		OK     bool       `json:"ok"`
		Result OpsSummary `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Result.Undecided != 3 {
		t.Errorf("undecided = %d, want 3", env.Result.Undecided)
	}
	if env.Result.Counts[booking.StatusConfirmed] != 1 {
		t.Errorf("confirmed count = %d", env.Result.Counts[booking.StatusConfirmed])
	}
	if env.Result.SlotLatency.Total != 100 {
		t.Errorf("latency total = %d", env.Result.SlotLatency.Total)
	}
	// p95 lands in the (0.05, 0.1] bucket.
	if p := env.Result.SlotLatency.P95Ms; p < 50 || p > 100 {
		t.Errorf("p95 = %f ms, want within (50, 100]", p)
	}
}

func TestOpsSummaryNoMetricsYet(t *testing.T) {
	repo := booking.NewInMemoryRepository()
	svc := booking.NewService(repo, catalog.NewStatic(nil), decision.NewSigner(""), nil, nil, nil, "", time.Hour)
	h := NewOpsSummaryHandler(svc, stubGatherer{}, nil)

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Result OpsSummary `json:"result"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Result.SlotLatency.Total != 0 {
		t.Errorf("latency total = %d, want 0", env.Result.SlotLatency.Total)
	}
}
