package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skillsync-dev/skillsync/internal/types"
)

func newSearchServer(t *testing.T, handler http.HandlerFunc) *HTTPSearchClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPSearchClient(server.Client(), server.URL)
}

func TestSearchResponseShapes(t *testing.T) {
	skillJSON := `{"name":"pdf-helper","author":"acme","sourceUrl":"https://github.com/acme/s/tree/main/pdf-helper","stars":12,"updatedAt":"2026-08-01"}`

	tests := []struct {
		name      string
		body      string
		wantCount int
		wantTotal int
	}{
		{"nested data object", fmt.Sprintf(`{"data":{"skills":[%s],"total":40}}`, skillJSON), 1, 40},
		{"flat skills object", fmt.Sprintf(`{"skills":[%s],"total":7}`, skillJSON), 1, 7},
		{"bare array", fmt.Sprintf(`[%s,%s]`, skillJSON, skillJSON), 2, 2},
		{"zero total falls back to count", fmt.Sprintf(`{"skills":[%s]}`, skillJSON), 1, 1},
		{"unrecognized shape degrades to empty", `{"items":[1,2,3]}`, 0, 0},
		{"empty body degrades to empty", ``, 0, 0},
		{"garbage degrades to empty", `<html>proxy error</html>`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			})

			resp, err := client.Search(context.Background(), SearchRequest{Query: "pdf"})
			if err != nil {
				t.Fatal(err)
			}
			if len(resp.Skills) != tt.wantCount {
				t.Errorf("skills = %d, want %d", len(resp.Skills), tt.wantCount)
			}
			if resp.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", resp.Total, tt.wantTotal)
			}
		})
	}
}

func TestSearchRequestParameters(t *testing.T) {
	tests := []struct {
		name         string
		req          SearchRequest
		wantEndpoint string
		wantLimit    string
		wantSort     string
	}{
		{"defaults", SearchRequest{Query: "q"}, "/api/search", "100", ""},
		{"explicit limit", SearchRequest{Query: "q", Limit: 10}, "/api/search", "10", ""},
		{"limit clamped to keyword cap", SearchRequest{Query: "q", Limit: 500}, "/api/search", "100", ""},
		{"semantic endpoint and cap", SearchRequest{Query: "q", Semantic: true, Limit: 500}, "/api/search/semantic", "50", ""},
		{"sort passed for keyword", SearchRequest{Query: "q", SortOrder: "stars"}, "/api/search", "100", "stars"},
		{"sort dropped for semantic", SearchRequest{Query: "q", SortOrder: "stars", Semantic: true}, "/api/search/semantic", "50", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotQuery map[string][]string
			client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotQuery = r.URL.Query()
				fmt.Fprint(w, `{"skills":[],"total":0}`)
			})

			if _, err := client.Search(context.Background(), tt.req); err != nil {
				t.Fatal(err)
			}

			if gotPath != tt.wantEndpoint {
				t.Errorf("endpoint = %s, want %s", gotPath, tt.wantEndpoint)
			}
			if got := firstValue(gotQuery, "limit"); got != tt.wantLimit {
				t.Errorf("limit = %s, want %s", got, tt.wantLimit)
			}
			if got := firstValue(gotQuery, "sort"); got != tt.wantSort {
				t.Errorf("sort = %q, want %q", got, tt.wantSort)
			}
			if got := firstValue(gotQuery, "q"); got != "q" {
				t.Errorf("query = %q", got)
			}
		})
	}
}

func firstValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func TestSearchNonOKStatus(t *testing.T) {
	client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestSearchContextCancelled(t *testing.T) {
	client := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Search(ctx, SearchRequest{Query: "q"}); !IsNetworkError(err) {
		t.Errorf("expected NetworkError on cancelled context, got %v", err)
	}
}

func TestFilterSkills(t *testing.T) {
	skills := []types.RemoteSkill{
		{Name: "one", Author: "Acme", Tags: []string{"pdf", "cli"}},
		{Name: "two", Author: "other", Tags: []string{"image"}},
		{Name: "three", Author: "acme", Tags: []string{"PDF"}},
	}

	tests := []struct {
		name    string
		authors []string
		tags    []string
		want    []string
	}{
		{"no filters passes all", nil, nil, []string{"one", "two", "three"}},
		{"author match is case-insensitive", []string{"ACME"}, nil, []string{"one", "three"}},
		{"tag match is case-insensitive", nil, []string{"pdf"}, []string{"one", "three"}},
		{"author and tag both required", []string{"acme"}, []string{"cli"}, []string{"one"}},
		{"no matches", []string{"nobody"}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSkills(skills, tt.authors, tt.tags)
			if len(got) != len(tt.want) {
				t.Fatalf("filtered %d skills, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("filtered[%d] = %s, want %s", i, got[i].Name, name)
				}
			}
		})
	}
}
