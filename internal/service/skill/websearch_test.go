package skill

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voicelayer/aria/internal/config"
)

func tavilyServer(t *testing.T, gotKey *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		var req tavilySearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if gotKey != nil {
			*gotKey = req.APIKey
		}
		_ = json.NewEncoder(w).Encode(tavilySearchResponse{
			Answer: "42",
			Results: []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Content string `json:"content"`
			}{
				{Title: "Answer page", URL: "https://example.com/a", Content: "the answer is 42"},
				{Title: "Other page", URL: "https://example.com/b", Content: "something else"},
			},
		})
	}))
}

func TestWebSearchExecute(t *testing.T) {
	srv := tavilyServer(t, nil)
	defer srv.Close()

	ws := NewWebSearch(config.SkillConfig{TavilyAPIKey: "tvly-env", TavilyBaseURL: srv.URL, Timeout: 5})

	res := ws.Execute(context.Background(), map[string]any{"query": "meaning of life"}, nil)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}

	data, ok := res.Data.(SearchData)
	if !ok {
		t.Fatalf("unexpected data type %T", res.Data)
	}
	if data.Answer != "42" || len(data.Results) != 2 {
		t.Fatalf("unexpected data: %+v", data)
	}

	formatted := ws.Format(res)
	if !strings.Contains(formatted, "Quick Answer: 42") {
		t.Fatalf("format missing answer: %q", formatted)
	}
	if !strings.Contains(formatted, "Answer page") {
		t.Fatalf("format missing result title: %q", formatted)
	}
}

func TestWebSearchEmptyQuery(t *testing.T) {
	ws := NewWebSearch(config.SkillConfig{TavilyAPIKey: "tvly-env", TavilyBaseURL: "http://unused", Timeout: 5})

	res := ws.Execute(context.Background(), map[string]any{"query": "   "}, nil)
	if res.Success {
		t.Fatal("expected failure for empty query")
	}
	if res.Err != "query is required" {
		t.Fatalf("unexpected error: %q", res.Err)
	}
}

func TestWebSearchMissingKey(t *testing.T) {
	ws := NewWebSearch(config.SkillConfig{TavilyBaseURL: "http://unused", Timeout: 5})

	res := ws.Execute(context.Background(), map[string]any{"query": "news"}, nil)
	if res.Success {
		t.Fatal("expected failure without API key")
	}
	if !strings.Contains(res.Err, "not configured") {
		t.Fatalf("unexpected error: %q", res.Err)
	}
}

func TestWebSearchCredentialOverride(t *testing.T) {
	var gotKey string
	srv := tavilyServer(t, &gotKey)
	defer srv.Close()

	ws := NewWebSearch(config.SkillConfig{TavilyAPIKey: "tvly-env", TavilyBaseURL: srv.URL, Timeout: 5})

	creds := map[string]string{CredentialTavilyKey: "tvly-session"}
	res := ws.Execute(context.Background(), map[string]any{"query": "news"}, creds)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	if gotKey != "tvly-session" {
		t.Fatalf("session credential not used, engine saw %q", gotKey)
	}
}

func TestWebSearchResultCap(t *testing.T) {
	srv := tavilyServer(t, nil)
	defer srv.Close()

	ws := NewWebSearch(config.SkillConfig{TavilyAPIKey: "k", TavilyBaseURL: srv.URL, Timeout: 5})

	res := ws.Execute(context.Background(), map[string]any{"query": "q", "max_results": float64(1)}, nil)
	if !res.Success {
		t.Fatalf("Execute failed: %s", res.Err)
	}
	data := res.Data.(SearchData)
	if len(data.Results) != 1 {
		t.Fatalf("expected results capped at 1, got %d", len(data.Results))
	}
}

func TestWebSearchEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws := NewWebSearch(config.SkillConfig{TavilyAPIKey: "k", TavilyBaseURL: srv.URL, Timeout: 5})

	res := ws.Execute(context.Background(), map[string]any{"query": "q"}, nil)
	if res.Success {
		t.Fatal("expected failure on engine error")
	}
	if !strings.Contains(ws.Format(res), "Web search failed") {
		t.Fatalf("unexpected format: %q", ws.Format(res))
	}
}

func TestRegistryUnknownFunction(t *testing.T) {
	reg := NewRegistry()

	record := reg.Execute(context.Background(), "bogus", nil, nil)
	if record.Success {
		t.Fatal("unknown function should fail")
	}
	if !strings.Contains(record.Output, "unknown function: bogus") {
		t.Fatalf("unexpected output: %q", record.Output)
	}
}
