package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func startAPIStub(t *testing.T) (*httptest.Server, *map[string]any) {
	t.Helper()
	var lastBody map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/interests", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"market": {"TECH10"}})
	})
	mux.HandleFunc("/v1/filters", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"applied": true})
	})
	mux.HandleFunc("/v1/groups", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"groups": []string{"TECH10"}})
	})
	mux.HandleFunc("/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "TECH10", "symbols": []string{"AAPL"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func execute(t *testing.T, srvURL string, args ...string) string {
	t.Helper()
	root := NewRoot(func() string { return srvURL })
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return buf.String()
}

func TestInterestsGetPrintsSelection(t *testing.T) {
	srv, _ := startAPIStub(t)
	out := execute(t, srv.URL, "interests", "get", "--subscriber", "x")
	if !strings.Contains(out, "TECH10") {
		t.Fatalf("output: %s", out)
	}
}

func TestInterestsSetSendsBody(t *testing.T) {
	srv, last := startAPIStub(t)
	execute(t, srv.URL, "interests", "set", "--subscriber", "x", "--category", "market", "--groups", "TECH10,ENERGY")
	body := *last
	if body["category"] != "market" {
		t.Fatalf("body: %v", body)
	}
	groups, ok := body["groups"].([]any)
	if !ok || len(groups) != 2 {
		t.Fatalf("groups: %v", body["groups"])
	}
}

func TestFilterSetSendsCriteria(t *testing.T) {
	srv, last := startAPIStub(t)
	execute(t, srv.URL, "filter", "set", "--subscriber", "y", "--min-count", "2", "--expression", "pct_change > 1.0")
	body := *last
	if body["enabled"] != true || body["expression"] != "pct_change > 1.0" {
		t.Fatalf("body: %v", body)
	}
}

func TestGroupsSetRequiresSymbols(t *testing.T) {
	srv, _ := startAPIStub(t)
	root := NewRoot(func() string { return srv.URL })
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"groups", "set", "TECH10"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without --symbols")
	}
}

func TestGroupsList(t *testing.T) {
	srv, _ := startAPIStub(t)
	out := execute(t, srv.URL, "groups", "list")
	if !strings.Contains(out, "TECH10") {
		t.Fatalf("output: %s", out)
	}
}

func TestBaseURLEnvFallback(t *testing.T) {
	t.Setenv("SURGECAST_HTTP", "http://example.test:9999")
	if got := resolveBaseURL(nil); got != "http://example.test:9999" {
		t.Fatalf("base url: %s", got)
	}
}
