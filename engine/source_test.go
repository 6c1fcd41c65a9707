package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	id     string
	mangas []Manga
	err    error
}

func (s *stubSource) ID() string      { return s.id }
func (s *stubSource) Name() string    { return s.id }
func (s *stubSource) BaseURL() string { return "https://" + s.id + ".test" }

func (s *stubSource) Search(ctx context.Context, params SearchParams) ([]Manga, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]Manga(nil), s.mangas...), nil
}

func (s *stubSource) GetChapters(ctx context.Context, mangaID string) ([]Chapter, error) {
	return nil, nil
}

func (s *stubSource) GetPages(ctx context.Context, chapterID string) ([]string, error) {
	return nil, nil
}

func (s *stubSource) DownloadChapter(ctx context.Context, chapterID, outputDir string) (string, error) {
	return "", nil
}

type loggerAwareSource struct {
	stubSource
	logger *LoggerService
}

func (s *loggerAwareSource) SetLogger(l *LoggerService) { s.logger = l }

func TestSourcesRegistrationOrder(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "b"})
	reg.Add(&stubSource{id: "a"})
	reg.Add(&stubSource{id: "c"})

	assert.Equal(t, []string{"b", "a", "c"}, reg.IDs())

	src, ok := reg.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", src.ID())

	_, ok = reg.Get("zzz")
	assert.False(t, ok)
}

func TestFlattenPartialFailure(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "A", mangas: []Manga{{ID: "m1", Title: "One"}}})
	reg.Add(&stubSource{id: "B", err: WrapNetwork(errors.New("connection reset"))})

	results, err := reg.Search("one").Flatten(context.Background())
	require.NoError(t, err, "one success is enough")
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].ID)
	assert.Equal(t, "A", results[0].SourceID, "engine stamps the producing source")
}

func TestFlattenAllFailed(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "A", err: WrapNetwork(errors.New("boom"))})
	reg.Add(&stubSource{id: "B", err: SourceStatus("B", 500)})

	_, err := reg.Search("one").Flatten(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindOther, KindOf(err))
	assert.Contains(t, err.Error(), "All sources failed")
	assert.Contains(t, err.Error(), "A: ")
	assert.Contains(t, err.Error(), "B: ")
}

func TestFlattenOrderIsRegistrationOrder(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "A", mangas: []Manga{{ID: "a1"}, {ID: "a2"}}})
	reg.Add(&stubSource{id: "B", mangas: []Manga{{ID: "b1"}}})

	results, err := reg.Search("q").Flatten(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, m := range results {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"a1", "a2", "b1"}, ids)
}

func TestGroupExposesFailuresInPlace(t *testing.T) {
	netErr := WrapNetwork(errors.New("dial tcp: refused"))
	reg := NewSources()
	reg.Add(&stubSource{id: "A", mangas: []Manga{{ID: "m1"}}})
	reg.Add(&stubSource{id: "B", err: netErr})

	grouped := reg.Search("one").Group(context.Background())
	require.Len(t, grouped, 2)

	assert.Equal(t, "A", grouped[0].SourceID)
	require.NoError(t, grouped[0].Err)
	assert.Len(t, grouped[0].Mangas, 1)

	assert.Equal(t, "B", grouped[1].SourceID)
	assert.Equal(t, KindNetwork, KindOf(grouped[1].Err))
}

func TestFromSource(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "A", mangas: []Manga{{ID: "m1", Title: "One"}}})

	results, err := reg.Search("one").FromSource(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].SourceID)

	_, err = reg.Search("one").FromSource(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAddReplacesDuplicateID(t *testing.T) {
	reg := NewSources()
	reg.Add(&stubSource{id: "A"})
	reg.Add(&stubSource{id: "B"})
	replacement := &stubSource{id: "A", mangas: []Manga{{ID: "new"}}}
	reg.Add(replacement)

	assert.Equal(t, []string{"A", "B"}, reg.IDs())
	src, _ := reg.Get("A")
	assert.Same(t, replacement, src)
}

func TestUseLoggerReachesSources(t *testing.T) {
	reg := NewSources()
	early := &loggerAwareSource{stubSource: stubSource{id: "early"}}
	reg.Add(early)

	logger := NewLogger(true)
	reg.UseLogger(logger)
	assert.Same(t, logger, early.logger, "sources registered before the logger still receive it")
	assert.Same(t, logger, reg.Logger)

	late := &loggerAwareSource{stubSource: stubSource{id: "late"}}
	reg.Add(late)
	assert.Same(t, logger, late.logger, "sources registered after the logger receive it on Add")
}
