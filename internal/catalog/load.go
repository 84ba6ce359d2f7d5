package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"bookrec/internal/domain"
)

// LoadOptions controls how raw catalog rows become books.
type LoadOptions struct {
	// DefaultCover is used when a row has no thumbnail.
	DefaultCover string
	// ThumbnailSuffix is appended to thumbnails to request a larger image.
	ThumbnailSuffix string
}

// Load reads a catalog file; the format is chosen by extension (.csv or .json).
func Load(path string, opts LoadOptions) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var books []domain.Book
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		books, err = ReadCSV(f, opts)
	case ".json":
		books, err = ReadJSON(f, opts)
	default:
		return nil, fmt.Errorf("catalog: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return New(books)
}

var requiredColumns = []string{"isbn13", "title", "authors", "description"}

// ReadCSV parses the books_with_emotions.csv layout written by the offline
// pipeline.
func ReadCSV(r io.Reader, opts LoadOptions) ([]domain.Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := col[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	categoryCol := firstColumn(col, "simple_categories", "simpler_categories", "categories")

	var books []domain.Book
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		scores := make(map[domain.Tone]float64, len(domain.ScoredTones))
		for _, t := range domain.ScoredTones {
			if v, err := strconv.ParseFloat(field(t.Emotion()), 64); err == nil {
				scores[t] = v
			}
		}
		b := domain.Book{
			ID:            normalizeID(field("isbn13")),
			Title:         field("title"),
			Authors:       splitAuthors(field("authors")),
			Description:   field("description"),
			ToneScores:    scores,
			CoverURL:      coverURL(field("thumbnail"), opts),
			PublishedDate: normalizeYear(field("published_year")),
			Publisher:     field("publisher"),
			PageCount:     parseInt(field("num_pages")),
			AverageRating: parseFloat(field("average_rating")),
		}
		if categoryCol != "" {
			b.Category = domain.Category(field(categoryCol))
		}
		b.DominantTone = resolveTone(field("dominant_tone"), scores)
		if b.Title == "" {
			b.Title = field("title_and_subtitle")
		}
		books = append(books, b)
	}
	return books, nil
}

// stringList accepts either a JSON string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = splitAuthors(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	out := make([]string, 0, len(many))
	for _, s := range many {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// looseString accepts a JSON string or a bare number.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(data)
	return nil
}

func (s looseString) String() string { return strings.TrimSpace(string(s)) }

type jsonBook struct {
	ID            looseString        `json:"isbn13"`
	AltID         string             `json:"id"`
	Title         string             `json:"title"`
	Authors       stringList         `json:"authors"`
	Description   string             `json:"description"`
	Categories    stringList         `json:"categories"`
	Category      string             `json:"simple_categories"`
	Tone          string             `json:"dominant_tone"`
	Scores        map[string]float64 `json:"tone_scores"`
	Thumbnail     string             `json:"thumbnail"`
	PublishedDate string             `json:"published_date"`
	PublishedYear looseString        `json:"published_year"`
	Publisher     string             `json:"publisher"`
	PageCount     looseString        `json:"num_pages"`
	AverageRating looseString        `json:"average_rating"`
}

// ReadJSON parses an array of book objects. Authors and categories may be a
// single string or a list; both normalize to an ordered list.
func ReadJSON(r io.Reader, opts LoadOptions) ([]domain.Book, error) {
	var raw []jsonBook
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	books := make([]domain.Book, 0, len(raw))
	for _, jb := range raw {
		id := normalizeID(jb.ID.String())
		if id == "" {
			id = strings.TrimSpace(jb.AltID)
		}
		category := strings.TrimSpace(jb.Category)
		if category == "" && len(jb.Categories) > 0 {
			category = jb.Categories[0]
		}
		scores := make(map[domain.Tone]float64, len(jb.Scores))
		for k, v := range jb.Scores {
			for _, t := range domain.ScoredTones {
				if strings.EqualFold(k, t.Emotion()) || strings.EqualFold(k, string(t)) {
					scores[t] = v
				}
			}
		}
		published := strings.TrimSpace(jb.PublishedDate)
		if published == "" {
			published = normalizeYear(jb.PublishedYear.String())
		}
		books = append(books, domain.Book{
			ID:            id,
			Title:         strings.TrimSpace(jb.Title),
			Authors:       jb.Authors,
			Description:   strings.TrimSpace(jb.Description),
			Category:      domain.Category(category),
			DominantTone:  resolveTone(jb.Tone, scores),
			ToneScores:    scores,
			CoverURL:      coverURL(jb.Thumbnail, opts),
			PublishedDate: published,
			Publisher:     strings.TrimSpace(jb.Publisher),
			PageCount:     parseInt(jb.PageCount.String()),
			AverageRating: parseFloat(jb.AverageRating.String()),
		})
	}
	return books, nil
}

// DominantTone returns the tone with the highest positive score. Ties go to
// the tone listed first in domain.ScoredTones.
func DominantTone(scores map[domain.Tone]float64) domain.Tone {
	best, bestScore := domain.ToneUnknown, 0.0
	for _, t := range domain.ScoredTones {
		if v := scores[t]; v > bestScore {
			best, bestScore = t, v
		}
	}
	return best
}

func resolveTone(label string, scores map[domain.Tone]float64) domain.Tone {
	if t, err := domain.ParseTone(label); err == nil && t != domain.ToneAll {
		return t
	}
	return DominantTone(scores)
}

func firstColumn(col map[string]int, names ...string) string {
	for _, n := range names {
		if _, ok := col[n]; ok {
			return n
		}
	}
	return ""
}

func splitAuthors(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func coverURL(thumbnail string, opts LoadOptions) string {
	thumbnail = strings.TrimSpace(thumbnail)
	if thumbnail == "" {
		return opts.DefaultCover
	}
	return thumbnail + opts.ThumbnailSuffix
}

// normalizeID undoes float formatting of numeric ids ("9780002005883.0").
func normalizeID(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), ".0")
}

func normalizeYear(s string) string {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return s
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
