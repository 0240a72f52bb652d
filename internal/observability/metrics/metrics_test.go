package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	r := NewRegistry()
	r.ObserveRequest("/healthz", http.MethodGet, http.StatusOK)
	r.ObserveRequest("/healthz", http.MethodGet, http.StatusOK)
	r.ObserveRequest("/api/v1/actions/", http.MethodPost, http.StatusNotFound)

	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("/healthz", http.MethodGet, "200")); got != 2 {
		t.Fatalf("unexpected healthz count %v", got)
	}
	if got := testutil.ToFloat64(r.requestsTotal.WithLabelValues("/api/v1/actions/", http.MethodPost, "404")); got != 1 {
		t.Fatalf("unexpected action count %v", got)
	}
}

func TestObserveAction(t *testing.T) {
	r := NewRegistry()
	r.ObserveAction("SEND_TOKEN", "success", 300*time.Millisecond)
	r.ObserveAction("SEND_TOKEN", "failure", 20*time.Second)

	if got := testutil.ToFloat64(r.actionsTotal.WithLabelValues("SEND_TOKEN", "success")); got != 1 {
		t.Fatalf("unexpected success count %v", got)
	}
	if got := testutil.CollectAndCount(r.actionDuration, "lightlink_action_duration_seconds"); got != 1 {
		t.Fatalf("unexpected histogram series count %d", got)
	}

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "lightlink_action_duration_seconds" {
			continue
		}
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 2 {
			t.Fatalf("unexpected sample count %d", h.GetSampleCount())
		}
		for _, b := range h.GetBucket() {
			switch b.GetUpperBound() {
			case 0.25:
				if b.GetCumulativeCount() != 0 {
					t.Fatalf("0.25 bucket holds %d", b.GetCumulativeCount())
				}
			case 0.5:
				if b.GetCumulativeCount() != 1 {
					t.Fatalf("0.5 bucket holds %d", b.GetCumulativeCount())
				}
			case 30:
				if b.GetCumulativeCount() != 2 {
					t.Fatalf("30 bucket holds %d", b.GetCumulativeCount())
				}
			}
		}
		return
	}
	t.Fatalf("duration histogram not gathered")
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveAction("search", "rejected", 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `lightlink_actions_total{action="search",outcome="rejected"} 1`) {
		t.Fatalf("missing action series:\n%s", rec.Body.String())
	}
}
