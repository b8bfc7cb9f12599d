package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                    "/",
		"/metrics":                            "/metrics",
		"/v1/posts/123":                       "/v1/posts/:id",
		"/v1/posts/123/like":                  "/v1/posts/:id/like",
		"/v1/posts/123/extra":                 "/v1/posts/123/extra",
		"/v1/replies/9/hide":                  "/v1/replies/:id/hide",
		"/v1/ledger/tokens/77":                "/v1/ledger/tokens/:id",
		"/v1/ledger/accounts/aaaaa-aa/tokens": "/v1/ledger/accounts/:id/tokens",
		"/v1/ledger/transactions?limit=10":    "/v1/ledger/transactions",
		"/v1/posts":                           "/v1/posts",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsByRoute(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := value(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/posts/:id", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/posts/42", nil))
	after := value(t, httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/posts/:id", "418"))
	if after != before+1 {
		t.Fatalf("counter moved from %v to %v", before, after)
	}
}

func TestDomainCounters(t *testing.T) {
	ObserveLedgerItem("mint", "ok")
	ObserveBatchRejected("burn")
	ObserveLike("post", "like")
	SetEntityCounts(map[string]int{"posts": 3})
	if got := value(t, entityCount.WithLabelValues("posts")); got != 3 {
		t.Fatalf("entity gauge = %v", got)
	}
	if got := value(t, ledgerBatchRejections.WithLabelValues("burn")); got < 1 {
		t.Fatalf("rejections = %v", got)
	}
}

func TestLogRequestIsJSON(t *testing.T) {
	logger := Logger()
	original := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	LogRequest(map[string]any{"path": "/healthz", "status": 200})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v (%s)", err, buf.String())
	}
	if entry["path"] != "/healthz" || entry["msg"] != "http request" || entry["ts"] == nil {
		t.Fatalf("unexpected entry %v", entry)
	}
	if err := SetLevel("nope"); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("bad level accepted: %v", err)
	}
}

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestResolveCommit(t *testing.T) {
	stamped := &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef0123"}}}
	cases := []struct {
		commit string
		info   *debug.BuildInfo
		want   string
	}{
		{"abc123", stamped, "abc123"},
		{"dev", stamped, "0123456789ab"},
		{"", stamped, "0123456789ab"},
		{"dev", nil, "dev"},
		{"", &debug.BuildInfo{}, "unknown"},
	}
	for _, c := range cases {
		if got := resolveCommit(c.commit, c.info); got != c.want {
			t.Fatalf("resolveCommit(%q) = %q, want %q", c.commit, got, c.want)
		}
	}
}

func TestInitBuildInfo(t *testing.T) {
	InitBuildInfo("1.2.3", "abc123")
	InitBuildInfo("1.2.3", "abc123")
	if got := value(t, buildInfo.WithLabelValues("1.2.3", "abc123", runtime.Version())); got != 1 {
		t.Fatalf("build info = %v", got)
	}
}
