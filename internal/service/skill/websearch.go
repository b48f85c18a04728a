package skill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/voicelayer/aria/internal/config"
)

// CredentialTavilyKey names the per-session override for the search engine key.
const CredentialTavilyKey = "tavily_api_key"

const (
	defaultSearchResults = 3
	maxSearchResults     = 5
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// SearchData is the structured result of a web search.
type SearchData struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// WebSearch searches the web through the Tavily REST engine.
type WebSearch struct {
	cfg    config.SkillConfig
	client *http.Client
}

// NewWebSearch creates the web search adapter.
func NewWebSearch(cfg config.SkillConfig) *WebSearch {
	return &WebSearch{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Kind implements Skill.
func (w *WebSearch) Kind() Kind { return KindWebSearch }

// Declaration implements Skill.
func (w *WebSearch) Declaration() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: string(KindWebSearch),
		Desc: "Search the web for current information, news, facts, or any topic that requires up-to-date information. " +
			"Use this when the user asks about recent events, latest news, stock prices, or anything that might have changed recently.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The search query. Be specific and include relevant keywords.",
				Required: true,
			},
			"max_results": {
				Type: schema.Integer,
				Desc: "Maximum number of search results to return (default 3, max 5).",
			},
		}),
	}
}

type tavilySearchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilySearchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Execute implements Skill. Parameters are validated at the boundary: an
// empty query is a structured error, never a panic.
func (w *WebSearch) Execute(ctx context.Context, params map[string]any, creds map[string]string) Result {
	query := strings.TrimSpace(stringParam(params, "query"))
	if query == "" {
		return Result{Err: "query is required"}
	}

	maxResults := intParam(params, "max_results", defaultSearchResults)
	if maxResults < 1 {
		maxResults = defaultSearchResults
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	apiKey := creds[CredentialTavilyKey]
	if apiKey == "" {
		apiKey = w.cfg.TavilyAPIKey
	}
	if apiKey == "" {
		return Result{Err: "Tavily API key not configured"}
	}

	payload, err := json.Marshal(tavilySearchRequest{
		APIKey:        apiKey,
		Query:         query,
		SearchDepth:   "basic",
		MaxResults:    maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return Result{Err: fmt.Sprintf("encode search request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.TavilyBaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Sprintf("build search request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("search request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Sprintf("search engine returned status %d", resp.StatusCode)}
	}

	var decoded tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{Err: fmt.Sprintf("decode search response: %v", err)}
	}

	data := SearchData{Query: query, Answer: decoded.Answer}
	for i, hit := range decoded.Results {
		if i >= maxResults {
			break
		}
		data.Results = append(data.Results, SearchResult{
			Title:   hit.Title,
			URL:     hit.URL,
			Excerpt: hit.Content,
		})
	}

	return Result{Success: true, Data: data}
}

// Format implements Skill, rendering the result as generation-context text.
func (w *WebSearch) Format(res Result) string {
	if !res.Success {
		return fmt.Sprintf("Web search failed: %s", res.Err)
	}

	data, ok := res.Data.(SearchData)
	if !ok {
		return "Web search returned no usable data"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web search results for: %s\n\n", data.Query)
	if data.Answer != "" {
		fmt.Fprintf(&b, "Quick Answer: %s\n\n", data.Answer)
	}
	if len(data.Results) > 0 {
		b.WriteString("Detailed Results:\n")
		for i, hit := range data.Results {
			excerpt := hit.Excerpt
			if len(excerpt) > 200 {
				excerpt = excerpt[:200] + "..."
			}
			fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   Content: %s\n\n", i+1, hit.Title, hit.URL, excerpt)
		}
	}
	return b.String()
}

func stringParam(params map[string]any, key string) string {
	if raw, ok := params[key]; ok {
		if s, ok := raw.(string); ok {
			return s
		}
	}
	return ""
}

// intParam tolerates both float64 (JSON numbers) and int values.
func intParam(params map[string]any, key string, fallback int) int {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return int(parsed)
		}
	}
	return fallback
}
