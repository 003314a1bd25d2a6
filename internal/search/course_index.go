package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/Skotchmaster/learnhub/internal/models"
)

const (
	DefaultIndex = "courses"
	// MaxHits caps how many ids one search hands back to the SQL filter.
	MaxHits = 1000
)

type courseDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Instructor  string `json:"instructor"`
}

// CourseIndex keeps a full-text copy of the catalog in elasticsearch.
type CourseIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewCourseIndex(es *elasticsearch.Client, index string) *CourseIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &CourseIndex{ES: es, Index: index}
}

func responseError(op, status string, body io.Reader) error {
	b, _ := io.ReadAll(body)
	return fmt.Errorf("elasticsearch %s %s: %s", op, status, b)
}

func (x *CourseIndex) IndexCourse(ctx context.Context, c *models.Course) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(courseDoc{
		ID:          c.ID.String(),
		Title:       c.Title,
		Slug:        c.Slug,
		Description: c.Description,
		Category:    c.Category,
		Difficulty:  c.Difficulty,
		Instructor:  c.Instructor,
	}); err != nil {
		return fmt.Errorf("encode course: %w", err)
	}

	res, err := x.ES.Index(x.Index, &buf,
		x.ES.Index.WithContext(ctx),
		x.ES.Index.WithDocumentID(c.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index course: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("index", res.Status(), res.Body)
	}
	return nil
}

// DeleteCourse ignores 404 so a course that never made it into the index
// can still be removed.
func (x *CourseIndex) DeleteCourse(ctx context.Context, id uuid.UUID) error {
	res, err := x.ES.Delete(x.Index, id.String(), x.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return responseError("delete", res.Status(), res.Body)
	}
	return nil
}

// SearchIDs runs a fuzzy multi_match over title and description and returns
// matching course ids by relevance.
func (x *CourseIndex) SearchIDs(ctx context.Context, query string) ([]uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": []string{"id"},
		"size":    MaxHits,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := x.ES.Search(
		x.ES.Search.WithContext(ctx),
		x.ES.Search.WithIndex(x.Index),
		x.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, responseError("search", res.Status(), res.Body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source courseDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := uuid.Parse(h.Source.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
