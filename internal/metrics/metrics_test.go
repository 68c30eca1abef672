package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/fairprice/internal/metrics"
)

func TestRegistryAndHandler(t *testing.T) {
	reg := metrics.NewRegistry()

	// record one sample of each so the vectors are exported
	metrics.ObserveHTTP("/api/v1/reviews", "GET", 200, 8*time.Millisecond)
	metrics.ObserveStore("file", "save", "ok")
	metrics.ObserveSkipped("file")
	metrics.ObserveView("counted")

	rr := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"fairprice_http_requests_total",
		"fairprice_store_operations_total",
		"fairprice_store_skipped_documents_total",
		"fairprice_review_views_total",
	} {
		if !strings.Contains(out, name) {
			t.Errorf("expected %s in output", name)
		}
	}
}
