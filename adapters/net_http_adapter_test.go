package adapters

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testBatch() EventBatch {
	return EventBatch{
		Events:  []Event{makeEvent("test")},
		Context: BatchContext{Platform: "test", Environment: "test"},
	}
}

func TestNetHTTPAdapter_SendEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("expected X-API-Key header")
		}
		var body EventBatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if len(body.Events) != 1 || body.Events[0].Name != "test" {
			t.Error("expected one event named test")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewNetHTTPAdapter()
	resp, err := adapter.SendEvents(server.URL, testBatch(), map[string]string{"X-API-Key": "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() || resp.Status != 200 {
		t.Fatal("expected successful response")
	}
}

func TestNetHTTPAdapter_SendEventsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewNetHTTPAdapter()
	resp, err := adapter.SendEvents(server.URL, testBatch(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.RateLimited() {
		t.Fatal("expected rate-limited response")
	}
	if resp.RetryAfter != 120*time.Second {
		t.Fatalf("expected 120s retry-after, got %v", resp.RetryAfter)
	}
}

func TestNetHTTPAdapter_SendEventsNetworkError(t *testing.T) {
	adapter := NewNetHTTPAdapter()
	_, err := adapter.SendEvents("http://127.0.0.1:1", testBatch(), nil)
	if err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}

func TestNetHTTPAdapter_FetchExperiments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Query().Get("user_id") != "user-1" {
			t.Error("expected user_id query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"assigned_variants":{"checkout_flow":"b"}}`))
	}))
	defer server.Close()

	adapter := NewNetHTTPAdapter()
	resp, err := adapter.FetchExperiments(server.URL+"?user_id=user-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AssignedVariants["checkout_flow"] != "b" {
		t.Fatal("expected assigned variant")
	}
}

func TestNetHTTPAdapter_FetchExperimentsDefinitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"experiments":[{"id":"onboarding","variants":["a","b","c"]}]}`))
	}))
	defer server.Close()

	adapter := NewNetHTTPAdapter()
	resp, err := adapter.FetchExperiments(server.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Experiments) != 1 || resp.Experiments[0].ID != "onboarding" {
		t.Fatal("expected one experiment definition")
	}
	if len(resp.Experiments[0].Variants) != 3 {
		t.Fatal("expected three variants")
	}
}

func TestNetHTTPAdapter_FetchExperimentsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewNetHTTPAdapter()
	if _, err := adapter.FetchExperiments(server.URL, nil); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}

func TestParseRetryAfter(t *testing.T) {
	cases := map[string]time.Duration{
		"":    0,
		"60":  60 * time.Second,
		"-1":  0,
		"abc": 0,
	}
	for input, expected := range cases {
		if got := parseRetryAfter(input); got != expected {
			t.Errorf("parseRetryAfter(%q) = %v, expected %v", input, got, expected)
		}
	}
}
