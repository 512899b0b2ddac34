package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/skillsync-dev/skillsync/internal/logger"
	"github.com/skillsync-dev/skillsync/internal/version"
)

const githubAPIBase = "https://api.github.com"

// ParsedSource is a validated skill source location on an allowlisted host.
type ParsedSource struct {
	Host  string
	Owner string
	Repo  string
	Ref   string
	Dir   string
}

// SkillName infers a skill name from the last path segment of the source.
func (p *ParsedSource) SkillName() string {
	return path.Base(p.Dir)
}

// String reconstructs the canonical browse URL for the source.
func (p *ParsedSource) String() string {
	return fmt.Sprintf("https://%s/%s/%s/tree/%s/%s", p.Host, p.Owner, p.Repo, p.Ref, p.Dir)
}

// FetchedFile is one downloaded skill file.
type FetchedFile struct {
	Name    string
	Content string
	Size    int64
}

// FetchResult is the outcome of listing and downloading a skill directory.
// Per-file failures accumulate in Errors; entries excluded from the fetch
// (subdirectories, binaries, oversized files, budget overflow) are reported
// in Skipped rather than silently dropped; an incomplete scan must be
// visible to the caller.
type FetchResult struct {
	Files   []FetchedFile
	Skipped []string
	Errors  []string
}

// TotalSize returns the cumulative byte count of fetched files.
func (r *FetchResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// RemoteFetcherInterface defines the contract for source validation and
// file retrieval. This interface enables mocking in tests.
type RemoteFetcherInterface interface {
	ValidateSourceURL(rawURL string) (*ParsedSource, error)
	FetchFiles(ctx context.Context, src *ParsedSource) (*FetchResult, error)
}

// Compile-time interface satisfaction check.
var _ RemoteFetcherInterface = (*RemoteFetcher)(nil)

// RemoteFetcher lists and downloads skill files from an allowlisted source
// host via its contents API.
type RemoteFetcher struct {
	client        *http.Client
	apiBase       string
	downloadHosts []string
}

// NewRemoteFetcher creates a RemoteFetcher with a default HTTP client.
func NewRemoteFetcher() *RemoteFetcher {
	return &RemoteFetcher{
		client:        &http.Client{Timeout: 30 * time.Second},
		apiBase:       githubAPIBase,
		downloadHosts: AllowedDownloadHosts,
	}
}

// NewRemoteFetcherWithBase creates a RemoteFetcher against a custom API base
// URL with additional allowed download hosts. Used by tests to point at an
// httptest server.
func NewRemoteFetcherWithBase(client *http.Client, apiBase string, extraDownloadHosts ...string) *RemoteFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteFetcher{
		client:        client,
		apiBase:       strings.TrimSuffix(apiBase, "/"),
		downloadHosts: append(append([]string{}, AllowedDownloadHosts...), extraDownloadHosts...),
	}
}

// ValidateSourceURL validates a raw skill source URL against the host
// allowlist and the strict owner/repo/tree/ref/path grammar. Anything else
// is rejected here, synchronously, before any network call or name
// inference runs. This is the SSRF defense.
func (f *RemoteFetcher) ValidateSourceURL(rawURL string) (*ParsedSource, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, NewValidationError("source URL", rawURL, "not a parseable URL")
	}

	if parsed.Scheme != "https" {
		return nil, NewValidationError("source URL", rawURL, "only https:// sources are accepted")
	}

	host := strings.ToLower(parsed.Hostname())
	if !hostAllowed(host, AllowedSourceHosts) {
		return nil, NewValidationError("source URL", rawURL, fmt.Sprintf("host %q is not on the source allowlist", host))
	}

	// Grammar: owner/repo/tree/ref/path[/...]. The ref is a single segment;
	// the skill path may nest.
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 5 || segments[2] != "tree" {
		return nil, NewValidationError("source URL", rawURL, "expected github.com/<owner>/<repo>/tree/<ref>/<path>")
	}
	for _, seg := range segments {
		if seg == "" || seg == ".." || seg == "." {
			return nil, NewValidationError("source URL", rawURL, "empty or relative path segment")
		}
	}

	return &ParsedSource{
		Host:  "github.com",
		Owner: segments[0],
		Repo:  segments[1],
		Ref:   segments[3],
		Dir:   strings.Join(segments[4:], "/"),
	}, nil
}

// contentEntry is one entry from the GitHub contents API.
type contentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"` // file, dir, symlink, submodule
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// FetchFiles lists the source directory and downloads every eligible file,
// enforcing the per-file, file-count, and cumulative-byte budgets. A single
// file failure never fails the fetch; it is accumulated in the result.
func (f *RemoteFetcher) FetchFiles(ctx context.Context, src *ParsedSource) (*FetchResult, error) {
	entries, err := f.listDirectory(ctx, src)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{}
	var totalBytes int64

	for _, entry := range entries {
		if entry.Type == "dir" {
			// Subdirectories are not descended into. Recording them keeps
			// the incompleteness of the scan visible.
			result.Skipped = append(result.Skipped, entry.Name+"/ (unscanned subdirectory)")
			continue
		}
		if entry.Type != "file" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s (unsupported entry type %q)", entry.Name, entry.Type))
			continue
		}
		if isBinaryName(entry.Name) {
			result.Skipped = append(result.Skipped, entry.Name+" (binary file)")
			continue
		}
		if entry.Size > MaxFileSize {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s (%d bytes exceeds per-file limit)", entry.Name, entry.Size))
			continue
		}
		if len(result.Files) >= MaxFilesPerSkill {
			result.Skipped = append(result.Skipped, entry.Name+" (file count limit reached)")
			continue
		}
		if totalBytes+entry.Size > MaxSkillSize {
			result.Skipped = append(result.Skipped, entry.Name+" (skill size budget exhausted)")
			continue
		}

		// The download URL comes from the API response, which we do not
		// trust blindly: a spoofed listing must not redirect downloads to
		// an arbitrary host.
		if err := validateDownloadURL(entry.DownloadURL, f.downloadHosts); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name, err))
			continue
		}

		content, err := f.downloadFile(ctx, entry.DownloadURL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.Name, err))
			continue
		}

		size := int64(len(content))
		totalBytes += size
		result.Files = append(result.Files, FetchedFile{Name: entry.Name, Content: content, Size: size})
	}

	logger.Debugw("fetched skill files",
		"source", src.String(),
		"files", len(result.Files),
		"skipped", len(result.Skipped),
		"errors", len(result.Errors))

	return result, nil
}

// listDirectory calls the contents API for the source directory.
func (f *RemoteFetcher) listDirectory(ctx context.Context, src *ParsedSource) ([]contentEntry, error) {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		f.apiBase, src.Owner, src.Repo, src.Dir, url.QueryEscape(src.Ref))

	resp, err := f.doGet(ctx, apiURL)
	if err != nil {
		return nil, NewNetworkError("list skill directory", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, NewNotFoundError(src.SkillName())
	case http.StatusForbidden, http.StatusTooManyRequests:
		return nil, NewNetworkError("list skill directory",
			fmt.Errorf("rate limited by the source API (set GITHUB_TOKEN to raise the limit)"))
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewNetworkError("list skill directory",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	entries, err := decodeContentsListing(resp.Body)
	if err != nil {
		return nil, NewNetworkError("list skill directory", err)
	}
	return entries, nil
}

// downloadFile fetches a single raw file, capped at MaxFileSize+1 so an
// undeclared oversized body is detected rather than buffered whole.
func (f *RemoteFetcher) downloadFile(ctx context.Context, downloadURL string) (string, error) {
	resp, err := f.doGet(ctx, downloadURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("file exceeds %d byte limit", MaxFileSize)
	}
	return string(data), nil
}

func (f *RemoteFetcher) doGet(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "skillsync/"+version.GetVersion())
	req.Header.Set("Accept", "application/vnd.github+json")

	// A token raises the API rate limit from 60/hr to 5000/hr
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return f.client.Do(req)
}

// validateDownloadURL checks a listing-provided download URL against the
// download host allowlist. Relative and non-https URLs are rejected. Plain
// http is tolerated only for loopback hosts so httptest servers work.
func validateDownloadURL(rawURL string, allowlist []string) error {
	if rawURL == "" {
		return fmt.Errorf("listing entry has no download URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("unparseable download URL")
	}
	host := strings.ToLower(parsed.Hostname())
	loopback := host == "127.0.0.1" || host == "localhost" || host == "::1"
	if parsed.Scheme != "https" && !(parsed.Scheme == "http" && loopback) {
		return fmt.Errorf("download URL is not https")
	}
	if !hostAllowed(host, allowlist) {
		return fmt.Errorf("download host %q is not on the download allowlist", host)
	}
	return nil
}

// decodeContentsListing decodes a contents API response. A directory lists
// as a JSON array; pointing the source URL at a single file yields an
// object, which is treated as a one-entry listing.
func decodeContentsListing(r io.Reader) ([]contentEntry, error) {
	data, err := io.ReadAll(io.LimitReader(r, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty listing response")
	}

	if trimmed[0] == '[' {
		var entries []contentEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		return entries, nil
	}

	var single contentEntry
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if single.Type == "" {
		return nil, fmt.Errorf("unrecognized listing shape")
	}
	return []contentEntry{single}, nil
}

func hostAllowed(host string, allowlist []string) bool {
	for _, allowed := range allowlist {
		if host == allowed {
			return true
		}
	}
	return false
}

func isBinaryName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range BinaryFileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
