package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

const invalidFilenameChars = `/\:*?"<>|`

// SanitizeFilename makes s safe to use as a file or directory name.
// The result never contains path separators, is at most 200 bytes and
// is never empty. Sanitizing twice yields the same value.
func SanitizeFilename(s string) string {
	out := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return '_'
		}
		return r
	}, s)
	out = strings.TrimSpace(out)
	if len(out) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimSpace(out[:cut])
	}
	if out == "" {
		return "untitled"
	}
	return out
}

// ExtractExtension infers a file extension from a URL, without the
// dot and lowercased. Returns "" when no plausible extension exists.
func ExtractExtension(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	segment := url
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		segment = url[i+1:]
	}
	i := strings.LastIndexByte(segment, '.')
	if i < 0 {
		return ""
	}
	ext := segment[i+1:]
	if len(ext) < 1 || len(ext) > 10 {
		return ""
	}
	return strings.ToLower(ext)
}

// DownloadFile fetches url with a single GET and writes the body to
// path, creating parent directories. Returns the number of bytes
// written. There is no retry; batch downloads go through
// DownloadChapterPages instead.
func DownloadFile(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, Parsef("invalid url %q: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := Client().Do(req)
	if err != nil {
		return 0, Parsef("fetching %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, Parsef("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, WrapIO(err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, WrapIO(err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return n, WrapIO(err)
	}
	return n, nil
}

// ChapterJob describes one chapter download for
// DownloadChapterPages. Sources fill it from their own config.
type ChapterJob struct {
	SourceID  string
	ChapterID string
	Title     string
	Pages     []string
	OutputDir string

	// Headers are attached to every page request, e.g. a Referer for
	// hosts that reject hotlinking.
	Headers map[string]string

	// Delay paces page requests. Zero means the 500ms default.
	Delay time.Duration

	Logger   *LoggerService
	Observer func(DownloadProgress)
}

const defaultPageDelay = 500 * time.Millisecond

// DownloadChapterPages writes the job's pages into
// <OutputDir>/chapter_<id sanitized>/page_NNN.<ext> and returns the
// chapter directory. A failing page is logged and skipped; the
// directory and the remaining pages are still produced. An empty page
// list is a hard failure.
func DownloadChapterPages(ctx context.Context, job ChapterJob) (string, error) {
	if len(job.Pages) == 0 {
		return "", Sourcef(job.SourceID, "no pages found for chapter %s", job.ChapterID)
	}

	dir := filepath.Join(job.OutputDir, "chapter_"+SanitizeFilename(job.ChapterID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", WrapIO(err)
	}

	delay := job.Delay
	if delay <= 0 {
		delay = defaultPageDelay
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	total := len(job.Pages)
	for i, pageURL := range job.Pages {
		if err := limiter.Wait(ctx); err != nil {
			return dir, err
		}

		if err := downloadPage(ctx, job.SourceID, pageURL, dir, i, job.Headers); err != nil {
			job.Logger.Warn("[%s] page %d/%d failed, skipping: %v", job.SourceID, i+1, total, err)
			continue
		}
		if job.Observer != nil {
			job.Observer(DownloadProgress{
				ChapterID: job.ChapterID,
				Title:     job.Title,
				Current:   i + 1,
				Total:     total,
			})
		}
	}

	if job.Observer != nil {
		job.Observer(DownloadProgress{
			ChapterID: job.ChapterID,
			Title:     job.Title,
			Current:   total,
			Total:     total,
			Completed: true,
		})
	}
	return dir, nil
}

func downloadPage(ctx context.Context, sourceID, pageURL, dir string, index int, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Parsef("invalid page url %q: %v", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := Client().Do(req)
	if err != nil {
		return WrapNetwork(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SourceStatus(sourceID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapNetwork(err)
	}

	ext := ExtractExtension(pageURL)
	if ext == "" || len(ext) > 4 {
		ext = "jpg"
	}
	name := fmt.Sprintf("page_%03d.%s", index+1, ext)
	if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
		return WrapIO(err)
	}
	return nil
}
