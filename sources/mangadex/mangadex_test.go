package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tosho/engine"
)

func testSource(apiURL string) *Source {
	s := New()
	s.apiURL = apiURL
	s.fetcher.Delay = time.Millisecond
	return s
}

func TestPickLocale(t *testing.T) {
	assert.Equal(t, "One Piece", pickLocale(map[string]string{"ja": "ワンピース", "en": "One Piece"}))
	assert.Equal(t, "x", pickLocale(map[string]string{"ja": "x"}))
	assert.Equal(t, "", pickLocale(map[string]string{}))
	assert.Equal(t, "", pickLocale(map[string]string{"en": "", "ja": ""}))
	assert.Equal(t, "romaji", pickLocale(map[string]string{"zh": "", "pt-br": "romaji"}))
}

func TestMapMangaTitleSelection(t *testing.T) {
	s := New()

	m := s.mapManga(mangaData{
		ID:         "m1",
		Attributes: mangaAttributes{Title: map[string]string{"ja": "ワンピース", "en": "One Piece"}},
	})
	assert.Equal(t, "One Piece", m.Title)
	assert.Equal(t, "mgd", m.SourceID)

	m = s.mapManga(mangaData{
		ID:         "m2",
		Attributes: mangaAttributes{Title: map[string]string{"ja": "x"}},
	})
	assert.Equal(t, "x", m.Title)

	m = s.mapManga(mangaData{ID: "m3"})
	assert.Equal(t, "Unknown Title", m.Title)
	assert.Empty(t, m.Description)
}

func TestMapMangaRelationships(t *testing.T) {
	s := New()

	author := relationship{Type: "author"}
	author.Attributes.Name = "Eiichiro Oda"
	artist := relationship{Type: "artist"}
	artist.Attributes.Name = "Also Oda"
	cover := relationship{Type: "cover_art"}
	cover.Attributes.FileName = "cover.jpg"

	m := s.mapManga(mangaData{
		ID:            "m1",
		Attributes:    mangaAttributes{Title: map[string]string{"en": "One Piece"}},
		Relationships: []relationship{author, artist, cover},
	})

	assert.Equal(t, []string{"Eiichiro Oda", "Also Oda"}, m.Authors)
	assert.Equal(t, "https://uploads.mangadex.org/covers/m1/cover.jpg", m.CoverURL)
}

func TestSearchQueryMapping(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/manga", r.URL.Path)
		query = r.URL.Query()
		json.NewEncoder(w).Encode(mangaListResponse{})
	}))
	defer srv.Close()

	s := testSource(srv.URL)
	_, err := s.Search(context.Background(), engine.SearchParams{Query: "one piece"})
	require.NoError(t, err)

	assert.Equal(t, []string{"one piece"}, query["title"])
	assert.Equal(t, []string{"20"}, query["limit"], "default limit")
	assert.Equal(t, []string{"cover_art"}, query["includes[]"])
	assert.ElementsMatch(t, []string{"safe", "suggestive", "erotica", "pornographic"}, query["contentRating[]"])
	assert.Equal(t, []string{"desc"}, query["order[relevance]"])
	assert.Empty(t, query["offset"])
}

func TestSearchQuerySortAndPaging(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		json.NewEncoder(w).Encode(mangaListResponse{})
	}))
	defer srv.Close()

	s := testSource(srv.URL)
	_, err := s.Search(context.Background(), engine.SearchParams{
		Query:  "one piece",
		Limit:  5,
		Offset: 40,
		SortBy: engine.SortUpdatedAt,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"5"}, query["limit"])
	assert.Equal(t, []string{"40"}, query["offset"])
	assert.Equal(t, []string{"desc"}, query["order[updatedAt]"])
	assert.Empty(t, query["order[relevance]"])
}

func TestGetChaptersPaginationAndSort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/manga/m1/feed", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "500", q.Get("limit"))
		assert.Equal(t, []string{"en"}, q["translatedLanguage[]"])

		resp := chapterFeedResponse{Total: 600}
		offset := q.Get("offset")
		count := 500
		if offset != "0" {
			count = 100
		}
		for i := 0; i < count; i++ {
			var data chapterData
			data.ID = fmt.Sprintf("c-%s-%d", offset, i)
			data.Attributes.Chapter = fmt.Sprintf("%d", i)
			resp.Data = append(resp.Data, data)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := testSource(srv.URL)
	chapters, err := s.GetChapters(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, chapters, 600)

	for i := 1; i < len(chapters); i++ {
		assert.LessOrEqual(t, chapters[i-1].Number, chapters[i].Number)
	}
	for _, c := range chapters[:5] {
		assert.Equal(t, "m1", c.MangaID)
		assert.Equal(t, "mgd", c.SourceID)
	}
}

func TestGetChaptersTitleSynthesis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chapterFeedResponse{Total: 2}
		var c1 chapterData
		c1.ID = "c1"
		c1.Attributes.Chapter = "10.5"
		var c2 chapterData
		c2.ID = "c2"
		c2.Attributes.Chapter = "2"
		c2.Attributes.Title = "The Duel"
		resp.Data = []chapterData{c1, c2}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	s := testSource(srv.URL)
	chapters, err := s.GetChapters(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, chapters, 2)

	assert.Equal(t, 2.0, chapters[0].Number)
	assert.Equal(t, "The Duel", chapters[0].Title)
	assert.Equal(t, 10.5, chapters[1].Number)
	assert.Equal(t, "Chapter 10.5", chapters[1].Title)
}

func atHomeHandler(t *testing.T, resp atHomeResponse) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/at-home/server/c1", r.URL.Path)
		json.NewEncoder(w).Encode(resp)
	})
}

func TestGetPagesDataSaverFallback(t *testing.T) {
	resp := atHomeResponse{BaseURL: "https://u.test"}
	resp.Chapter.Hash = "H"
	resp.Chapter.DataSaver = []string{"a.png"}
	srv := httptest.NewServer(atHomeHandler(t, resp))
	defer srv.Close()

	pages, err := testSource(srv.URL).GetPages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://u.test/data-saver/H/a.png"}, pages)
}

func TestGetPagesPrefersFullData(t *testing.T) {
	resp := atHomeResponse{BaseURL: "https://u.test"}
	resp.Chapter.Hash = "H"
	resp.Chapter.Data = []string{"a.jpg", "b.jpg"}
	resp.Chapter.DataSaver = []string{"ignored.png"}
	srv := httptest.NewServer(atHomeHandler(t, resp))
	defer srv.Close()

	pages, err := testSource(srv.URL).GetPages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://u.test/data/H/a.jpg",
		"https://u.test/data/H/b.jpg",
	}, pages)
}

func TestGetPagesMissingHash(t *testing.T) {
	resp := atHomeResponse{BaseURL: "https://u.test"}
	resp.Chapter.Data = []string{"a.jpg"}
	srv := httptest.NewServer(atHomeHandler(t, resp))
	defer srv.Close()

	_, err := testSource(srv.URL).GetPages(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, engine.KindParse, engine.KindOf(err))
}

func TestGetPagesEmpty(t *testing.T) {
	resp := atHomeResponse{BaseURL: "https://u.test"}
	resp.Chapter.Hash = "H"
	srv := httptest.NewServer(atHomeHandler(t, resp))
	defer srv.Close()

	_, err := testSource(srv.URL).GetPages(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
}

func TestGetManga(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/manga/m1", r.URL.Path)
		var resp struct {
			Data mangaData `json:"data"`
		}
		resp.Data.ID = "m1"
		resp.Data.Attributes.Title = map[string]string{"en": "One Piece"}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	m, err := testSource(srv.URL).GetManga(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "One Piece", m.Title)
	assert.Equal(t, "mgd", m.SourceID)
}

func TestGetMangaMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	_, err := testSource(srv.URL).GetManga(context.Background(), "m1")
	require.Error(t, err)
	assert.Equal(t, engine.KindNotFound, engine.KindOf(err))
}

func TestSourceMetadata(t *testing.T) {
	var _ engine.Source = New()
	var _ engine.ProgressReporter = New()
	var _ engine.MangaDetailer = New()
	var _ engine.LoggerAware = New()

	s := New()
	assert.Equal(t, "mgd", s.ID())
	assert.Equal(t, "MangaDex", s.Name())
	assert.Equal(t, "https://mangadex.org", s.BaseURL())
}
