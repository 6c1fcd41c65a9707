// Package mangadex implements a source backed by the MangaDex JSON
// API (https://api.mangadex.org).
package mangadex

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tosho/engine"
)

const (
	sourceID   = "mgd"
	sourceName = "MangaDex"

	siteURL           = "https://mangadex.org"
	defaultAPIURL     = "https://api.mangadex.org"
	defaultUploadsURL = "https://uploads.mangadex.org"

	defaultSearchLimit = 20
	feedPageSize       = 500
)

// localePreference is the order in which localized titles and
// descriptions are considered.
var localePreference = []string{"en", "en-us", "ja", "ja-ro"}

var contentRatings = []string{"safe", "suggestive", "erotica", "pornographic"}

type Source struct {
	apiURL     string
	uploadsURL string
	fetcher    *engine.Fetcher
	logger     *engine.LoggerService
}

func New() *Source {
	return &Source{
		apiURL:     defaultAPIURL,
		uploadsURL: defaultUploadsURL,
		fetcher:    engine.NewFetcher(sourceID).WithDelay(250 * time.Millisecond),
	}
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

func (s *Source) ID() string      { return sourceID }
func (s *Source) Name() string    { return sourceName }
func (s *Source) BaseURL() string { return siteURL }

func (s *Source) Search(ctx context.Context, params engine.SearchParams) ([]engine.Manga, error) {
	q := url.Values{}
	q.Set("title", params.Query)

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	q.Add("includes[]", "cover_art")
	for _, rating := range contentRatings {
		q.Add("contentRating[]", rating)
	}

	switch params.SortBy {
	case engine.SortUpdatedAt:
		q.Set("order[updatedAt]", "desc")
	case engine.SortCreatedAt:
		q.Set("order[createdAt]", "desc")
	case engine.SortTitle:
		q.Set("order[title]", "asc")
	default:
		q.Set("order[relevance]", "desc")
	}

	var resp mangaListResponse
	if err := s.fetcher.GetJSON(ctx, s.apiURL+"/manga?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	mangas := make([]engine.Manga, 0, len(resp.Data))
	for _, data := range resp.Data {
		mangas = append(mangas, s.mapManga(data))
	}
	return mangas, nil
}

// GetManga fetches full metadata for a single manga.
func (s *Source) GetManga(ctx context.Context, mangaID string) (engine.Manga, error) {
	var resp struct {
		Data mangaData `json:"data"`
	}
	detailURL := fmt.Sprintf("%s/manga/%s?includes[]=cover_art&includes[]=author&includes[]=artist", s.apiURL, mangaID)
	if err := s.fetcher.GetJSON(ctx, detailURL, &resp); err != nil {
		return engine.Manga{}, err
	}
	if resp.Data.ID == "" {
		return engine.Manga{}, engine.NotFoundf("manga %s", mangaID)
	}
	return s.mapManga(resp.Data), nil
}

func (s *Source) GetChapters(ctx context.Context, mangaID string) ([]engine.Chapter, error) {
	var chapters []engine.Chapter
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(feedPageSize))
		q.Set("offset", strconv.Itoa(offset))
		q.Add("translatedLanguage[]", "en")
		q.Set("order[volume]", "asc")
		q.Set("order[chapter]", "asc")
		for _, rating := range contentRatings {
			q.Add("contentRating[]", rating)
		}

		var resp chapterFeedResponse
		feedURL := fmt.Sprintf("%s/manga/%s/feed?%s", s.apiURL, mangaID, q.Encode())
		if err := s.fetcher.GetJSON(ctx, feedURL, &resp); err != nil {
			return nil, err
		}

		for _, data := range resp.Data {
			chapters = append(chapters, s.mapChapter(data, mangaID))
		}

		offset += feedPageSize
		if offset >= resp.Total || len(resp.Data) == 0 {
			break
		}
	}

	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].Number < chapters[j].Number
	})
	return chapters, nil
}

func (s *Source) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	var resp atHomeResponse
	if err := s.fetcher.GetJSON(ctx, s.apiURL+"/at-home/server/"+chapterID, &resp); err != nil {
		return nil, err
	}

	if len(resp.Chapter.Data) == 0 && len(resp.Chapter.DataSaver) == 0 {
		return nil, engine.NotFoundf("no pages for chapter %s", chapterID)
	}
	if resp.Chapter.Hash == "" {
		return nil, engine.Parsef("at-home response for chapter %s has no hash", chapterID)
	}
	if resp.BaseURL == "" {
		return nil, engine.Parsef("at-home response for chapter %s has no baseUrl", chapterID)
	}

	files := resp.Chapter.Data
	quality := "data"
	if len(files) == 0 {
		files = resp.Chapter.DataSaver
		quality = "data-saver"
	}

	base := strings.TrimSuffix(resp.BaseURL, "/")
	pages := make([]string, len(files))
	for i, file := range files {
		pages[i] = fmt.Sprintf("%s/%s/%s/%s", base, quality, resp.Chapter.Hash, file)
	}
	return pages, nil
}

func (s *Source) DownloadChapter(ctx context.Context, chapterID, outputDir string) (string, error) {
	return s.DownloadChapterWithProgress(ctx, chapterID, outputDir, nil)
}

func (s *Source) DownloadChapterWithProgress(ctx context.Context, chapterID, outputDir string, observer func(engine.DownloadProgress)) (string, error) {
	pages, err := s.GetPages(ctx, chapterID)
	if err != nil {
		return "", err
	}
	return engine.DownloadChapterPages(ctx, engine.ChapterJob{
		SourceID:  sourceID,
		ChapterID: chapterID,
		Pages:     pages,
		OutputDir: outputDir,
		Logger:    s.logger,
		Observer:  observer,
	})
}

func (s *Source) mapManga(data mangaData) engine.Manga {
	title := pickLocale(data.Attributes.Title)
	if title == "" {
		title = "Unknown Title"
	}
	description := pickLocale(data.Attributes.Description)
	if description == "Unknown Title" {
		description = ""
	}

	var authors []string
	var cover string
	for _, rel := range data.Relationships {
		switch rel.Type {
		case "author", "artist":
			if rel.Attributes.Name != "" {
				authors = append(authors, rel.Attributes.Name)
			}
		case "cover_art":
			if rel.Attributes.FileName != "" {
				cover = fmt.Sprintf("%s/covers/%s/%s", s.uploadsURL, data.ID, rel.Attributes.FileName)
			}
		}
	}

	var tags []string
	for _, tag := range data.Attributes.Tags {
		if name := pickLocale(tag.Attributes.Name); name != "" {
			tags = append(tags, name)
		}
	}

	return engine.Manga{
		ID:          data.ID,
		Title:       title,
		CoverURL:    cover,
		Authors:     authors,
		Description: description,
		Tags:        tags,
		SourceID:    sourceID,
	}
}

func (s *Source) mapChapter(data chapterData, mangaID string) engine.Chapter {
	// Oneshots and extras have no chapter field and sort first.
	number, err := strconv.ParseFloat(data.Attributes.Chapter, 64)
	if err != nil {
		number = 0
	}

	title := data.Attributes.Title
	if title == "" {
		title = fmt.Sprintf("Chapter %s", formatNumber(number))
	}

	return engine.Chapter{
		ID:       data.ID,
		Number:   number,
		Title:    title,
		MangaID:  mangaID,
		SourceID: sourceID,
	}
}

// pickLocale chooses the best value from a locale map: preferred
// locales first, then the first non-empty value in key order.
func pickLocale(values map[string]string) string {
	for _, locale := range localePreference {
		if v := values[locale]; v != "" {
			return v
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := values[k]; v != "" {
			return v
		}
	}
	return ""
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

type mangaListResponse struct {
	Data   []mangaData `json:"data"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type mangaData struct {
	ID            string          `json:"id"`
	Attributes    mangaAttributes `json:"attributes"`
	Relationships []relationship  `json:"relationships"`
}

type mangaAttributes struct {
	Title       map[string]string `json:"title"`
	Description map[string]string `json:"description"`
	Tags        []tagData         `json:"tags"`
}

type tagData struct {
	Attributes struct {
		Name map[string]string `json:"name"`
	} `json:"attributes"`
}

type relationship struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name     string `json:"name"`
		FileName string `json:"fileName"`
	} `json:"attributes"`
}

type chapterFeedResponse struct {
	Data   []chapterData `json:"data"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type chapterData struct {
	ID         string `json:"id"`
	Attributes struct {
		Chapter            string `json:"chapter"`
		Title              string `json:"title"`
		TranslatedLanguage string `json:"translatedLanguage"`
	} `json:"attributes"`
}

type atHomeResponse struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}
