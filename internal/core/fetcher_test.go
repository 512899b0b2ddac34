package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestValidateSourceURL(t *testing.T) {
	f := NewRemoteFetcher()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid tree URL", "https://github.com/owner/repo/tree/main/skills/formatter", false},
		{"valid nested path", "https://github.com/owner/repo/tree/v1.2/a/b/c", false},
		{"www host accepted", "https://www.github.com/owner/repo/tree/main/skill", false},
		{"http rejected", "http://github.com/owner/repo/tree/main/skill", true},
		{"wrong host", "https://gitlab.com/owner/repo/tree/main/skill", true},
		{"lookalike host", "https://github.com.evil.example/owner/repo/tree/main/skill", true},
		{"missing tree segment", "https://github.com/owner/repo/blob/main/skill", true},
		{"too few segments", "https://github.com/owner/repo/tree/main", true},
		{"dot-dot segment", "https://github.com/owner/repo/tree/main/../etc/passwd", true},
		{"dot segment", "https://github.com/owner/repo/tree/main/./skill", true},
		{"empty string", "", true},
		{"garbage", "not a url at all", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := f.ValidateSourceURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ValidateSourceURL(%q) accepted, want rejection", tt.url)
				} else if !IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateSourceURL(%q) rejected: %v", tt.url, err)
			}
			if src.Host != "github.com" {
				t.Errorf("host = %q, want github.com", src.Host)
			}
		})
	}
}

func TestParsedSourceFields(t *testing.T) {
	f := NewRemoteFetcher()
	src, err := f.ValidateSourceURL("https://github.com/acme/skills/tree/main/tools/pdf-helper")
	if err != nil {
		t.Fatal(err)
	}

	if src.Owner != "acme" || src.Repo != "skills" || src.Ref != "main" {
		t.Errorf("parsed %+v", src)
	}
	if src.Dir != "tools/pdf-helper" {
		t.Errorf("dir = %q, want tools/pdf-helper", src.Dir)
	}
	if src.SkillName() != "pdf-helper" {
		t.Errorf("skill name = %q, want pdf-helper", src.SkillName())
	}
	if src.String() != "https://github.com/acme/skills/tree/main/tools/pdf-helper" {
		t.Errorf("round-trip = %q", src.String())
	}
}

// newListingServer serves a contents listing plus raw file downloads from
// one httptest server.
func newListingServer(t *testing.T, files map[string]string, extra []map[string]any) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		var listing []map[string]any
		for name, content := range files {
			listing = append(listing, map[string]any{
				"name":         name,
				"path":         "skill/" + name,
				"type":         "file",
				"size":         len(content),
				"download_url": server.URL + "/raw/" + url.PathEscape(name),
			})
		}
		listing = append(listing, extra...)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listing)
	})
	mux.HandleFunc("/raw/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/raw/")
		content, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testSource() *ParsedSource {
	return &ParsedSource{Host: "github.com", Owner: "o", Repo: "r", Ref: "main", Dir: "skill"}
}

func TestFetchFiles(t *testing.T) {
	files := map[string]string{
		"SKILL.md":  "# Skill\n",
		"helper.js": "console.log('hi')\n",
	}
	server := newListingServer(t, files, nil)
	f := NewRemoteFetcherWithBase(server.Client(), server.URL, "127.0.0.1")

	result, err := f.FetchFiles(context.Background(), testSource())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("fetched %d files, want 2", len(result.Files))
	}
	if result.TotalSize() != int64(len(files["SKILL.md"])+len(files["helper.js"])) {
		t.Errorf("total size = %d", result.TotalSize())
	}
}

func TestFetchFilesSkipsIneligibleEntries(t *testing.T) {
	files := map[string]string{"SKILL.md": "# ok\n"}
	extra := []map[string]any{
		{"name": "lib", "type": "dir"},
		{"name": "logo.png", "type": "file", "size": 10, "download_url": "https://raw.githubusercontent.com/x"},
		{"name": "big.txt", "type": "file", "size": MaxFileSize + 1, "download_url": "https://raw.githubusercontent.com/y"},
		{"name": "link", "type": "symlink"},
	}
	server := newListingServer(t, files, extra)
	f := NewRemoteFetcherWithBase(server.Client(), server.URL, "127.0.0.1")

	result, err := f.FetchFiles(context.Background(), testSource())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Files) != 1 {
		t.Fatalf("fetched %d files, want 1", len(result.Files))
	}
	if len(result.Skipped) != 4 {
		t.Errorf("skipped %d entries, want 4: %v", len(result.Skipped), result.Skipped)
	}
	for _, s := range result.Skipped {
		if strings.HasPrefix(s, "lib/") && !strings.Contains(s, "unscanned subdirectory") {
			t.Errorf("subdirectory skip reason missing: %q", s)
		}
	}
}

func TestFetchFilesRejectsOffHostDownloadURL(t *testing.T) {
	extra := []map[string]any{
		{"name": "evil.txt", "type": "file", "size": 5, "download_url": "https://attacker.example/payload"},
	}
	server := newListingServer(t, map[string]string{}, extra)
	f := NewRemoteFetcherWithBase(server.Client(), server.URL, "127.0.0.1")

	result, err := f.FetchFiles(context.Background(), testSource())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Files) != 0 {
		t.Error("off-allowlist download must not be fetched")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "allowlist") {
		t.Errorf("expected an allowlist error, got %v", result.Errors)
	}
}

func TestFetchFilesNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := NewRemoteFetcherWithBase(server.Client(), server.URL)
	_, err := f.FetchFiles(context.Background(), testSource())
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestFetchFilesRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := NewRemoteFetcherWithBase(server.Client(), server.URL)
	_, err := f.FetchFiles(context.Background(), testSource())
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !strings.Contains(err.Error(), "GITHUB_TOKEN") {
		t.Errorf("rate-limit error should mention GITHUB_TOKEN: %v", err)
	}
}

func TestFetchFilesFileCountBudget(t *testing.T) {
	files := make(map[string]string, MaxFilesPerSkill+5)
	for i := 0; i < MaxFilesPerSkill+5; i++ {
		files[fmt.Sprintf("file-%03d.txt", i)] = "x"
	}
	server := newListingServer(t, files, nil)
	f := NewRemoteFetcherWithBase(server.Client(), server.URL, "127.0.0.1")

	result, err := f.FetchFiles(context.Background(), testSource())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Files) != MaxFilesPerSkill {
		t.Errorf("fetched %d files, want the %d cap", len(result.Files), MaxFilesPerSkill)
	}
	if len(result.Skipped) != 5 {
		t.Errorf("skipped %d, want 5", len(result.Skipped))
	}
}

func TestValidateDownloadURL(t *testing.T) {
	allowlist := append([]string{}, AllowedDownloadHosts...)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"allowlisted https", "https://raw.githubusercontent.com/o/r/main/f.md", false},
		{"empty", "", true},
		{"http non-loopback", "http://raw.githubusercontent.com/f", true},
		{"off-host", "https://evil.example/f", true},
		{"loopback http off allowlist", "http://127.0.0.1:9999/f", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDownloadURL(tt.url, allowlist)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDownloadURL(%q) error = %v, wantErr %t", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestDecodeContentsListingSingleObject(t *testing.T) {
	entries, err := decodeContentsListing(strings.NewReader(
		`{"name":"SKILL.md","path":"s/SKILL.md","type":"file","size":4,"download_url":"https://raw.githubusercontent.com/x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "SKILL.md" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestDecodeContentsListingGarbage(t *testing.T) {
	if _, err := decodeContentsListing(strings.NewReader("not json")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := decodeContentsListing(strings.NewReader("")); err == nil {
		t.Error("expected error on empty body")
	}
	if _, err := decodeContentsListing(strings.NewReader(`{"unexpected":"shape"}`)); err == nil {
		t.Error("expected error on unrecognized object shape")
	}
}
