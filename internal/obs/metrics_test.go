package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	const id = "6f1c2f0e-4a53-4c5e-9d0b-0b9f6a2f8f11"
	cases := []struct {
		in, want string
	}{
		{"", "/"},
		{"/metrics", "/metrics"},
		{"/api/users/" + id, "/api/users/:id"},
		{"/api/users/" + id + "/permissions", "/api/users/:id/permissions"},
		{"/api/users/not-a-uuid", "/api/users/not-a-uuid"},
		{"/api/tickets?limit=10", "/api/tickets"},
		{"/api/auth/login", "/api/auth/login"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRecordAuthzDecision(t *testing.T) {
	before := testutil.ToFloat64(authzDecisions.WithLabelValues("tickets", "READ", "granted"))
	RecordAuthzDecision("tickets", "READ", "granted")
	after := testutil.ToFloat64(authzDecisions.WithLabelValues("tickets", "READ", "granted"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %v", after-before)
	}
}

func TestInstrumentKeepsStatus(t *testing.T) {
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rr.Code)
	}
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "418"))
	if got < 1 {
		t.Fatalf("request not counted")
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("json", &buf).Info("hello", "k", "v")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["k"] != "v" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
