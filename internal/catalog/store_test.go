package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/domain"
)

const sampleCSV = `isbn13,title,authors,description,thumbnail,simple_categories,joy,surprise,anger,fear,sadness,published_year,num_pages,average_rating
9780002005883,Gilead,Marilynne Robinson,A novel of a dying preacher.,http://books.google.com/a?id=1,Fiction,0.9,0.1,0.0,0.2,0.5,2004.0,247.0,3.85
9780002261982,Spider's Web,Charles Osborne;Agatha Christie,A new Poirot mystery.,,Fiction,0.1,0.2,0.1,0.8,0.1,2000,241,3.83
9780006178736,Rage of Angels,Sidney Sheldon,A courtroom thriller.,,,0,0,0,0,0,1993,512,3.93
`

func TestReadCSV(t *testing.T) {
	books, err := ReadCSV(strings.NewReader(sampleCSV), LoadOptions{DefaultCover: "cover-not-found.jpg", ThumbnailSuffix: "&fife=w800"})
	require.NoError(t, err)
	require.Len(t, books, 3)

	g := books[0]
	assert.Equal(t, "9780002005883", g.ID)
	assert.Equal(t, []string{"Marilynne Robinson"}, g.Authors)
	assert.Equal(t, domain.Category("Fiction"), g.Category)
	assert.Equal(t, domain.ToneHappy, g.DominantTone)
	assert.Equal(t, "http://books.google.com/a?id=1&fife=w800", g.CoverURL)
	assert.Equal(t, "2004", g.PublishedDate)
	assert.Equal(t, 247, g.PageCount)
	assert.InDelta(t, 3.85, g.AverageRating, 1e-9)

	assert.Equal(t, []string{"Charles Osborne", "Agatha Christie"}, books[1].Authors)
	assert.Equal(t, domain.ToneSuspenseful, books[1].DominantTone)
	assert.Equal(t, "cover-not-found.jpg", books[1].CoverURL)

	assert.Equal(t, domain.ToneUnknown, books[2].DominantTone)
	assert.Equal(t, domain.Category(""), books[2].Category)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("isbn13,title\n1,x\n"), LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authors")
	assert.Contains(t, err.Error(), "description")
}

func TestReadJSON_CoercesAuthorsAndCategories(t *testing.T) {
	in := `[
	  {"isbn13": 9780000000001, "title": "One", "authors": "A. Writer; B. Writer", "categories": ["Nonfiction", "History"], "description": "d1", "tone_scores": {"joy": 0.1, "sadness": 0.7}},
	  {"isbn13": "9780000000002", "title": "Two", "authors": ["C. Writer"], "simple_categories": "Fiction", "dominant_tone": "angry", "description": "d2", "num_pages": "120"},
	  {"id": "custom-3", "title": "Three", "authors": null, "description": "d3", "thumbnail": "http://x/y"}
	]`
	books, err := ReadJSON(strings.NewReader(in), LoadOptions{ThumbnailSuffix: "&fife=w800"})
	require.NoError(t, err)
	require.Len(t, books, 3)

	assert.Equal(t, "9780000000001", books[0].ID)
	assert.Equal(t, []string{"A. Writer", "B. Writer"}, books[0].Authors)
	assert.Equal(t, domain.Category("Nonfiction"), books[0].Category)
	assert.Equal(t, domain.ToneSad, books[0].DominantTone)

	assert.Equal(t, "9780000000002", books[1].ID)
	assert.Equal(t, []string{"C. Writer"}, books[1].Authors)
	assert.Equal(t, domain.ToneAngry, books[1].DominantTone)
	assert.Equal(t, 120, books[1].PageCount)

	assert.Equal(t, "custom-3", books[2].ID)
	assert.Empty(t, books[2].Authors)
	assert.Equal(t, "http://x/y&fife=w800", books[2].CoverURL)
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	s, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = Load(filepath.Join(dir, "books.parquet"), LoadOptions{})
	assert.Error(t, err)
}

func TestNew_RejectsDuplicatesAndBlankIDs(t *testing.T) {
	_, err := New([]domain.Book{{ID: "1"}, {ID: "1"}})
	assert.ErrorContains(t, err, "duplicate")

	_, err = New([]domain.Book{{ID: "  "}})
	assert.ErrorContains(t, err, "empty id")
}

func TestStore_GetAndLookup(t *testing.T) {
	s, err := New([]domain.Book{
		{ID: "111", Title: "First", Category: "Fiction"},
		{ID: "222", Title: "Second"},
	})
	require.NoError(t, err)

	b, ok := s.Get("111")
	require.True(t, ok)
	assert.Equal(t, "First", b.Title)

	_, ok = s.Get("333")
	assert.False(t, ok)

	b, pos, ok := s.Lookup("222 A tagged description of the second book")
	require.True(t, ok)
	assert.Equal(t, "Second", b.Title)
	assert.Equal(t, 1, pos)

	_, _, ok = s.Lookup("")
	assert.False(t, ok)
	_, _, ok = s.Lookup("999 stale entry")
	assert.False(t, ok)
}

func TestStore_NormalizesSentinels(t *testing.T) {
	s, err := New([]domain.Book{{ID: "1"}, {ID: "2", Category: "All", DominantTone: "Gloomy"}})
	require.NoError(t, err)
	for _, b := range s.All() {
		assert.Equal(t, domain.CategoryUnknown, b.Category)
		assert.Equal(t, domain.ToneUnknown, b.DominantTone)
	}
	assert.True(t, s.HasCategory(domain.CategoryUnknown))
	assert.False(t, s.HasCategory(domain.CategoryAll))
}

func TestStore_Facets(t *testing.T) {
	s, err := New([]domain.Book{
		{ID: "1", Category: "Nonfiction", DominantTone: domain.ToneSad},
		{ID: "2", Category: "Fiction", DominantTone: domain.ToneHappy},
		{ID: "3", Category: "Children's Fiction", DominantTone: domain.ToneSad},
		{ID: "4", Category: "Fiction"},
	})
	require.NoError(t, err)

	f := s.Facets()
	assert.Equal(t, []domain.Category{"All", "Children's Fiction", "Fiction", "Nonfiction"}, f.Categories)
	assert.Equal(t, []domain.Tone{domain.ToneAll, domain.ToneHappy, domain.ToneSad, domain.ToneUnknown}, f.Tones)
	assert.Equal(t, []domain.Category{"Children's Fiction", "Fiction", "Nonfiction"}, s.Categories())

	f.Categories[0] = "mutated"
	assert.Equal(t, domain.CategoryAll, s.Facets().Categories[0])

	cats := s.Categories()
	cats[0] = "mutated"
	_ = append(cats[:1], "Poetry")
	assert.Equal(t, []domain.Category{"Children's Fiction", "Fiction", "Nonfiction"}, s.Categories())
	assert.Equal(t, []domain.Category{"All", "Children's Fiction", "Fiction", "Nonfiction"}, s.Facets().Categories)
}

func TestDominantTone(t *testing.T) {
	assert.Equal(t, domain.ToneUnknown, DominantTone(nil))
	assert.Equal(t, domain.ToneHappy, DominantTone(map[domain.Tone]float64{domain.ToneHappy: 0.5, domain.ToneSad: 0.5}))
	assert.Equal(t, domain.ToneAngry, DominantTone(map[domain.Tone]float64{domain.ToneAngry: 0.6, domain.ToneSad: 0.5}))
}
