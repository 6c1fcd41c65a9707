// Package madara is a configurable source template for sites built on
// the Madara WordPress theme. A concrete site is one Config value;
// see sources/kissmanga for an instantiation.
package madara

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tosho/engine"
)

// Selectors are the per-site CSS selectors. Any left empty falls back
// to a list of selectors common across Madara skins.
type Selectors struct {
	MangaItem     string
	ChapterLinks  string
	ChapterTitles string
	ChapterPages  string

	// Detail page enrichment, all optional.
	Description string
	Authors     string
	Tags        string
}

// Config instantiates the template for one site.
type Config struct {
	ID      string
	Name    string
	BaseURL string

	// MangaPath is the URL segment between the base URL and the manga
	// slug, "manga" on stock installs.
	MangaPath string

	// PathChapterIDs keeps the full URL path (leading slash included)
	// as the chapter ID instead of a slug. Use it for sites whose
	// chapter URLs do not live under MangaPath.
	PathChapterIDs bool

	// Headers are sent with every request and with page downloads.
	// Sites that reject hotlinked images need a matching Referer here.
	Headers map[string]string

	Delay      time.Duration
	MaxRetries int

	Selectors Selectors
}

// Fallbacks tried when the configured selector yields nothing.
var (
	mangaItemFallbacks = []string{
		"div.post-title h3 a",
		"div.post-title h5 a",
		".c-tabs-item__content .post-title a",
		".manga-item a",
		"h3.h4 a",
	}
	chapterLinkFallbacks = []string{
		"li.wp-manga-chapter > a",
		".wp-manga-chapter a",
		".version-chap li a",
		".chapter-link",
		".listing-chapters_wrap a",
	}
	chapterPageFallbacks = []string{
		"div.page-break img",
		".reading-content img",
		".wp-manga-chapter-img",
		".chapter-content img",
	}
	descriptionFallbacks = []string{
		".description-summary .summary__content",
		".summary__content p",
		".manga-excerpt",
	}
	authorFallbacks = []string{
		".author-content a",
		".manga-authors a",
	}
	tagFallbacks = []string{
		".genres-content a",
		".tags-content a",
	}
)

// Chapter number extraction rules, tried in order.
var (
	reChapterWord   = regexp.MustCompile(`(?i)(?:chapter|ch\.?)\s*(\d+(?:\.\d+)?)`)
	reAnyNumber     = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	reChapterIDWord = regexp.MustCompile(`(?i)(?:chapter|ch)-?(\d+(?:\.\d+)?)`)
)

var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type Source struct {
	cfg     Config
	fetcher *engine.Fetcher
	logger  *engine.LoggerService
}

func New(cfg Config) *Source {
	if cfg.MangaPath == "" {
		cfg.MangaPath = "manga"
	}
	f := engine.NewFetcher(cfg.ID).WithHeaders(cfg.Headers)
	if cfg.Delay > 0 {
		f.WithDelay(cfg.Delay)
	}
	if cfg.MaxRetries > 0 {
		f.WithRetries(cfg.MaxRetries)
	}
	return &Source{cfg: cfg, fetcher: f}
}

func (s *Source) WithLogger(l *engine.LoggerService) *Source {
	s.SetLogger(l)
	return s
}

// SetLogger satisfies engine.LoggerAware so a registry can hand its
// logger to an already registered source.
func (s *Source) SetLogger(l *engine.LoggerService) {
	s.logger = l
	s.fetcher.WithLogger(l)
}

func (s *Source) ID() string      { return s.cfg.ID }
func (s *Source) Name() string    { return s.cfg.Name }
func (s *Source) BaseURL() string { return s.cfg.BaseURL }

func (s *Source) Search(ctx context.Context, params engine.SearchParams) ([]engine.Manga, error) {
	searchURL := fmt.Sprintf("%s/?s=%s&post_type=wp-manga", s.cfg.BaseURL, url.QueryEscape(params.Query))
	html, err := s.fetcher.GetText(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	doc, err := engine.ParseHTML(html)
	if err != nil {
		return nil, err
	}

	selector, sel := s.firstMatch(doc, s.cfg.Selectors.MangaItem, mangaItemFallbacks)
	if sel == nil {
		// Selector drift or genuinely nothing found, either way an
		// empty result.
		return nil, nil
	}
	s.logger.Debug("[%s] search matched %d items via %q", s.cfg.ID, sel.Length(), selector)

	mangas := engine.ParseItems(doc, selector, func(a *goquery.Selection) (engine.Manga, bool) {
		href, ok := a.Attr("href")
		if !ok {
			return engine.Manga{}, false
		}
		title := strings.TrimSpace(a.Text())
		id := lastPathSegment(href)
		if title == "" || id == "" {
			return engine.Manga{}, false
		}
		return engine.Manga{
			ID:       id,
			Title:    title,
			CoverURL: s.coverFromTile(a),
			SourceID: s.cfg.ID,
		}, true
	})

	if params.Limit > 0 && len(mangas) > params.Limit {
		mangas = mangas[:params.Limit]
	}
	return mangas, nil
}

func (s *Source) GetChapters(ctx context.Context, mangaID string) ([]engine.Chapter, error) {
	mangaURL := fmt.Sprintf("%s/%s/%s/", s.cfg.BaseURL, s.cfg.MangaPath, mangaID)
	html, err := s.fetcher.GetText(ctx, mangaURL)
	if err != nil {
		return nil, err
	}
	doc, err := engine.ParseHTML(html)
	if err != nil {
		return nil, err
	}

	_, sel := s.firstMatch(doc, s.cfg.Selectors.ChapterLinks, chapterLinkFallbacks)
	if sel == nil {
		return nil, nil
	}

	titles := s.chapterTitles(doc, sel)

	var chapters []engine.Chapter
	sel.Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		title := ""
		if i < len(titles) {
			title = titles[i]
		}

		id := s.chapterID(href)
		if id == "" {
			return
		}

		number, found := extractChapterNumber(title, id)
		if !found {
			number = float64(i + 1)
		}
		if title == "" {
			title = fmt.Sprintf("Chapter %s", strconv.FormatFloat(number, 'f', -1, 64))
		}

		chapters = append(chapters, engine.Chapter{
			ID:       id,
			Number:   number,
			Title:    title,
			MangaID:  mangaID,
			SourceID: s.cfg.ID,
		})
	})

	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Number < chapters[j].Number
	})
	return chapters, nil
}

// GetManga scrapes the metadata a search tile does not carry from the
// manga detail page.
func (s *Source) GetManga(ctx context.Context, mangaID string) (engine.Manga, error) {
	mangaURL := fmt.Sprintf("%s/%s/%s/", s.cfg.BaseURL, s.cfg.MangaPath, mangaID)
	html, err := s.fetcher.GetText(ctx, mangaURL)
	if err != nil {
		return engine.Manga{}, err
	}
	doc, err := engine.ParseHTML(html)
	if err != nil {
		return engine.Manga{}, err
	}

	m := engine.Manga{ID: mangaID, SourceID: s.cfg.ID}
	m.Title = engine.SelectText(doc, ".post-title h1")
	if m.Title == "" {
		m.Title = mangaID
	}
	m.Description = s.firstText(doc, s.cfg.Selectors.Description, descriptionFallbacks)
	m.Authors = s.allText(doc, s.cfg.Selectors.Authors, authorFallbacks)
	m.Tags = s.allText(doc, s.cfg.Selectors.Tags, tagFallbacks)
	if img := doc.Find(".summary_image img").First(); img.Length() > 0 {
		if src := imageSource(img); src != "" {
			m.CoverURL = s.absoluteURL(src)
		}
	}
	return m, nil
}

func (s *Source) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	html, err := s.fetcher.GetText(ctx, s.chapterURL(chapterID))
	if err != nil {
		return nil, err
	}
	doc, err := engine.ParseHTML(html)
	if err != nil {
		return nil, err
	}

	_, sel := s.firstMatch(doc, s.cfg.Selectors.ChapterPages, chapterPageFallbacks)
	if sel == nil {
		return nil, engine.NotFoundf("no pages for chapter %s", chapterID)
	}

	var pages []string
	sel.Each(func(_ int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			return
		}
		src = s.absoluteURL(src)
		if !isPageImage(src) {
			return
		}
		pages = append(pages, src)
	})

	if len(pages) == 0 {
		return nil, engine.NotFoundf("no pages for chapter %s", chapterID)
	}
	return pages, nil
}

// DownloadChapter attaches the configured headers to every page
// request, which Madara hosts typically require as a Referer check.
func (s *Source) DownloadChapter(ctx context.Context, chapterID, outputDir string) (string, error) {
	return s.DownloadChapterWithProgress(ctx, chapterID, outputDir, nil)
}

func (s *Source) DownloadChapterWithProgress(ctx context.Context, chapterID, outputDir string, observer func(engine.DownloadProgress)) (string, error) {
	pages, err := s.GetPages(ctx, chapterID)
	if err != nil {
		return "", err
	}
	return engine.DownloadChapterPages(ctx, engine.ChapterJob{
		SourceID:  s.cfg.ID,
		ChapterID: chapterID,
		Pages:     pages,
		OutputDir: outputDir,
		Headers:   s.cfg.Headers,
		Delay:     s.cfg.Delay,
		Logger:    s.logger,
		Observer:  observer,
	})
}

// firstMatch tries the configured selector, then the fallbacks, and
// returns the first selector with at least one match.
func (s *Source) firstMatch(doc *goquery.Document, configured string, fallbacks []string) (string, *goquery.Selection) {
	candidates := fallbacks
	if configured != "" {
		candidates = append([]string{configured}, fallbacks...)
	}
	for _, selector := range candidates {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return selector, sel
		}
	}
	return "", nil
}

func (s *Source) firstText(doc *goquery.Document, configured string, fallbacks []string) string {
	_, sel := s.firstMatch(doc, configured, fallbacks)
	if sel == nil {
		return ""
	}
	return strings.TrimSpace(sel.First().Text())
}

func (s *Source) allText(doc *goquery.Document, configured string, fallbacks []string) []string {
	_, sel := s.firstMatch(doc, configured, fallbacks)
	if sel == nil {
		return nil
	}
	var out []string
	sel.Each(func(_ int, node *goquery.Selection) {
		if t := strings.TrimSpace(node.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// chapterTitles returns per chapter titles, either from the dedicated
// selector or from the anchor text itself.
func (s *Source) chapterTitles(doc *goquery.Document, links *goquery.Selection) []string {
	if t := s.cfg.Selectors.ChapterTitles; t != "" && t != s.cfg.Selectors.ChapterLinks {
		if titles := engine.SelectAllText(doc, t); len(titles) == links.Length() {
			return titles
		}
	}
	titles := make([]string, 0, links.Length())
	links.Each(func(_ int, a *goquery.Selection) {
		titles = append(titles, strings.TrimSpace(a.Text()))
	})
	return titles
}

func (s *Source) chapterID(href string) string {
	if s.cfg.PathChapterIDs {
		if u, err := url.Parse(href); err == nil && u.Path != "" {
			return u.Path
		}
		return ""
	}
	return lastPathSegment(href)
}

func (s *Source) chapterURL(chapterID string) string {
	switch {
	case strings.HasPrefix(chapterID, "http://"), strings.HasPrefix(chapterID, "https://"):
		return chapterID
	case strings.HasPrefix(chapterID, "/"):
		return s.cfg.BaseURL + chapterID
	default:
		return fmt.Sprintf("%s/%s/%s/", s.cfg.BaseURL, s.cfg.MangaPath, chapterID)
	}
}

// coverFromTile looks for the result tile's thumbnail around a search
// hit anchor.
func (s *Source) coverFromTile(a *goquery.Selection) string {
	tile := a.Closest(".c-tabs-item__content, .tab-thumb, .page-item-detail, .row, article")
	img := tile.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	src := imageSource(img)
	if src == "" {
		return ""
	}
	return s.absoluteURL(src)
}

func (s *Source) absoluteURL(src string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return s.cfg.BaseURL + src
	default:
		return src
	}
}

// imageSource unwraps the usual lazy-loading attributes and rejects
// placeholder values.
func imageSource(img *goquery.Selection) string {
	for _, attr := range imageAttrs {
		v, ok := img.Attr(attr)
		if !ok {
			continue
		}
		v = strings.Join(strings.Fields(v), "")
		if v == "" {
			continue
		}
		lower := strings.ToLower(v)
		if strings.Contains(lower, "placeholder") || strings.Contains(lower, "loading") || len(v) < 10 {
			continue
		}
		return v
	}
	return ""
}

// isPageImage filters out ads and non-page assets after the URL has
// been made absolute.
func isPageImage(src string) bool {
	lower := strings.ToLower(src)
	if strings.Contains(lower, "advertisement") || strings.Contains(lower, "banner") || strings.Contains(lower, "favicon") {
		return false
	}
	if strings.HasSuffix(lower, ".gif") {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// extractChapterNumber parses a chapter number from the title, then
// from the chapter ID.
func extractChapterNumber(title, id string) (float64, bool) {
	if m := reChapterWord.FindStringSubmatch(title); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n, true
		}
	}
	if m := reAnyNumber.FindStringSubmatch(title); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			return n, true
		}
	}
	for _, re := range []*regexp.Regexp{reChapterIDWord, reAnyNumber} {
		if m := re.FindStringSubmatch(id); m != nil {
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func lastPathSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, segment := range reverse(strings.Split(u.Path, "/")) {
		if segment != "" {
			return segment
		}
	}
	return ""
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
