package fec

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fecharvest/internal/collect/ratelimit"
	"fecharvest/internal/core/domain"
)

func zeroLimiter() *ratelimit.Limiter { return ratelimit.New(0) }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Key:         "test-key",
		CallTimeout: 5 * time.Second,
		PageSize:    2,
	}, zeroLimiter())
	return client, srv
}

func writeEnvelope(w http.ResponseWriter, results any, page, pages, count int) {
	json.NewEncoder(w).Encode(map[string]any{
		"results": results,
		"pagination": map[string]int{
			"page": page, "pages": pages, "count": count, "per_page": 2,
		},
	})
}

func TestFetchEntity_FullSequence(t *testing.T) {
	var totalsCalls, reportPages int32
	mux := http.NewServeMux()
	mux.HandleFunc("/candidate/H1CA01/totals/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("api_key missing from request")
		}
		atomic.AddInt32(&totalsCalls, 1)
		writeEnvelope(w, []map[string]any{{"receipts": 5000.0}}, 1, 1, 1)
	})
	mux.HandleFunc("/candidate/H1CA01/committees/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{
			{"committee_id": "C001", "designation": "P"},
			{"committee_id": "C002", "designation": "D"}, // leadership PAC, excluded
		}, 1, 1, 2)
	})
	mux.HandleFunc("/committee/C001/reports/", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		atomic.AddInt32(&reportPages, 1)
		if page == "1" {
			writeEnvelope(w, []map[string]any{
				{"committee_id": "C001", "coverage_start_date": "2023-01-01"},
				{"committee_id": "C001", "coverage_start_date": "2023-04-01"},
			}, 1, 2, 3)
			return
		}
		writeEnvelope(w, []map[string]any{
			{"committee_id": "C001", "coverage_start_date": "2023-07-01"},
		}, 2, 2, 3)
	})
	mux.HandleFunc("/committee/C002/reports/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("reports fetched for non-attributable committee C002")
	})

	client, _ := newTestClient(t, mux)
	data, err := client.FetchEntity(context.Background(), domain.Entity{ID: "H1CA01", Cycle: 2024})
	if err != nil {
		t.Fatalf("FetchEntity failed: %v", err)
	}

	if n := atomic.LoadInt32(&totalsCalls); n != 1 {
		t.Errorf("expected 1 totals call in the sequence, got %d", n)
	}
	if len(data.Committees) != 1 {
		t.Fatalf("expected 1 attributable committee, got %d", len(data.Committees))
	}
	if got := len(data.Committees[0].Reports); got != 3 {
		t.Errorf("expected 3 reports across pages, got %d", got)
	}
	if n := atomic.LoadInt32(&reportPages); n != 2 {
		t.Errorf("expected 2 report page fetches, got %d", n)
	}
}

func TestFetchEntity_NoCommittees(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/candidate/H1CA01/totals/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{}, 1, 1, 0)
	})
	mux.HandleFunc("/candidate/H1CA01/committees/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{}, 1, 0, 0)
	})

	client, _ := newTestClient(t, mux)
	data, err := client.FetchEntity(context.Background(), domain.Entity{ID: "H1CA01", Cycle: 2024})
	if err != nil {
		t.Fatalf("FetchEntity failed: %v", err)
	}
	if !data.NoCommittees {
		t.Error("expected explicit no-committees signal")
	}
}

func TestFetchEntity_ExplicitlyEmptyReports(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/candidate/H1CA01/totals/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{}, 1, 1, 0)
	})
	mux.HandleFunc("/candidate/H1CA01/committees/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{{"committee_id": "C001", "designation": "A"}}, 1, 1, 1)
	})
	mux.HandleFunc("/committee/C001/reports/", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []map[string]any{}, 1, 0, 0)
	})

	client, _ := newTestClient(t, mux)
	data, err := client.FetchEntity(context.Background(), domain.Entity{ID: "H1CA01", Cycle: 2024})
	if err != nil {
		t.Fatalf("FetchEntity failed: %v", err)
	}
	if len(data.Committees) != 1 || !data.Committees[0].ExplicitEmpty {
		t.Errorf("expected explicit-empty committee, got %+v", data.Committees)
	}
}

func TestFetchEntity_MissingPaginationIsSchemaError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/candidate/H1CA01/totals/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	client, _ := newTestClient(t, mux)
	_, err := client.FetchEntity(context.Background(), domain.Entity{ID: "H1CA01", Cycle: 2024})

	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Kind != domain.ErrorKindSchema {
		t.Errorf("expected schema error, got %v", err)
	}
}

func TestGet_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   domain.ErrorKind
	}{
		{"rate limit", http.StatusTooManyRequests, domain.ErrorKindNone},
		{"server error", http.StatusBadGateway, domain.ErrorKindServer},
		{"client error", http.StatusNotFound, domain.ErrorKindNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tc.status)
			}))

			var out totalsResponse
			err := client.get(context.Background(), "/candidate/X/totals/", nil, &out)

			var callErr *CallError
			if !errors.As(err, &callErr) {
				t.Fatalf("expected *CallError, got %v", err)
			}
			if callErr.Status != tc.status || callErr.Kind != tc.kind {
				t.Errorf("got status=%d kind=%q, want status=%d kind=%q",
					callErr.Status, callErr.Kind, tc.status, tc.kind)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Errorf("expected exactly one attempt, got %d", n)
			}
		})
	}
}

func TestGet_MalformedBodyIsSchemaError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))

	var out totalsResponse
	err := client.get(context.Background(), "/candidate/X/totals/", nil, &out)

	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Kind != domain.ErrorKindSchema {
		t.Errorf("expected schema error for malformed body, got %v", err)
	}
}

func TestGet_ConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listening anymore

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Key:         "test-key",
		CallTimeout: time.Second,
	}, zeroLimiter())

	var out totalsResponse
	err := client.get(context.Background(), "/candidate/X/totals/", nil, &out)

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %v", err)
	}
	if callErr.Kind != domain.ErrorKindNetwork && callErr.Kind != domain.ErrorKindTimeout {
		t.Errorf("expected network or timeout kind, got %q", callErr.Kind)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out totalsResponse
	err := client.get(ctx, "/candidate/X/totals/", nil, &out)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context error, got %v", err)
	}
}

func TestListCandidates_PagesAndSorts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/candidates/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			writeEnvelope(w, []map[string]any{
				{"candidate_id": "H3TX05", "name": "Gamma"},
				{"candidate_id": "H1CA01", "name": "Alpha"},
			}, 1, 2, 3)
		default:
			writeEnvelope(w, []map[string]any{
				{"candidate_id": "H2NY12", "name": "Beta"},
			}, 2, 2, 3)
		}
	})

	client, _ := newTestClient(t, mux)
	entities, err := client.ListCandidates(context.Background(), 2024)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}
	ids := []string{entities[0].ID, entities[1].ID, entities[2].ID}
	if strings.Join(ids, ",") != "H1CA01,H2NY12,H3TX05" {
		t.Errorf("entities not in total order: %v", ids)
	}
	for _, e := range entities {
		if e.Cycle != 2024 {
			t.Errorf("entity %s missing cycle", e.ID)
		}
	}
}

func TestListCandidates_FailureIsFatalToRun(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if _, err := client.ListCandidates(context.Background(), 2024); err == nil {
		t.Fatal("expected error from failed candidate listing")
	}
}
