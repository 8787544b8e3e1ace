package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/catonblt/novelbuddies/internal/provider/providertest"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	g := &Gateway{
		root:      "/novels",
		startedAt: time.Now().Add(-90 * time.Second),
		provider:  &providertest.MockProvider{Model: "claude-test", Window: 1000},
		hub:       NewHub(nil, nil),
	}

	rr := httptest.NewRecorder()
	g.handleStatus().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UptimeSeconds < 90 {
		t.Errorf("uptime = %d, want >= 90", resp.UptimeSeconds)
	}
	if resp.Model != "claude-test" || resp.ContextWindow != 1000 || resp.ProjectsRoot != "/novels" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Indexer != nil || resp.Scheduled != nil {
		t.Errorf("absent services should be omitted: %+v", resp)
	}
}
