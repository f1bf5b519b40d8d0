// Package search maintains a Bleve index over every item the engine has seen,
// serving the search view offline and free-text filtering when the ranked
// backend query is unavailable.
package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/vitrinapp/vitrin/internal/content"
)

// Hit is one scored match.
type Hit struct {
	ItemID   string
	SellerID string
	Title    string
	Category string
	Score    float64
}

// Index wraps a Bleve index over listing documents.
type Index struct {
	idx bleve.Index
}

// NewIndex opens or creates the index at indexPath. An empty path builds an
// in-memory index that lasts for the process lifetime.
func NewIndex(indexPath string) (*Index, error) {
	if indexPath == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
		// continue; Open/New below will still error and be returned
		_ = mkErr
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	caption := bleve.NewTextFieldMapping()
	caption.Analyzer = standard.Name
	caption.Store = false

	seller := bleve.NewTextFieldMapping()
	seller.Analyzer = standard.Name
	seller.Store = true

	category := bleve.NewTextFieldMapping()
	category.Analyzer = standard.Name
	category.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("caption", caption)
	dm.AddFieldMappingsAt("seller_id", seller)
	dm.AddFieldMappingsAt("category", category)

	im.DefaultMapping = dm
	return im
}

func (s *Index) Close() error {
	return s.idx.Close()
}

// IndexItems upserts a batch of items. Called whenever fresh results land in
// the cache, so re-indexing the same item is the common case.
func (s *Index) IndexItems(items []*content.Item) error {
	batch := s.idx.NewBatch()
	for _, it := range items {
		if it == nil || it.ID == "" {
			continue
		}
		_ = batch.Index(docID(it.ID), map[string]any{
			"item_id":   it.ID,
			"seller_id": it.SellerID,
			"title":     it.Title,
			"caption":   it.Caption,
			"category":  it.Category,
		})
	}
	return s.idx.Batch(batch)
}

// Remove drops one item from the index, e.g. after a conflict eviction.
func (s *Index) Remove(itemID string) error {
	return s.idx.Delete(docID(itemID))
}

// Search runs a tokenized disjunction across the boosted fields.
func (s *Index) Search(query string, limit int) ([]*Hit, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Hit{}, nil
	}
	if limit <= 0 {
		limit = 25
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		// title^4
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(tok)
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)
		// caption^2
		qc := bleve.NewMatchQuery(tok)
		qc.SetField("caption")
		qc.SetBoost(2.0)
		qs = append(qs, qc)
		// seller^1.5
		qse := bleve.NewMatchQuery(tok)
		qse.SetField("seller_id")
		qse.SetBoost(1.5)
		qs = append(qs, qse)
		// category^1
		qca := bleve.NewMatchQuery(tok)
		qca.SetField("category")
		qca.SetBoost(1.0)
		qs = append(qs, qca)
	}
	if len(qs) == 0 {
		return []*Hit{}, nil
	}

	q := bleve.NewDisjunctionQuery(qs...)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"title", "seller_id", "category"}

	res, err := s.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	out := make([]*Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := &Hit{
			ItemID: strings.TrimPrefix(h.ID, "listing:"),
			Score:  h.Score,
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["seller_id"].(string); ok {
			hit.SellerID = v
		}
		if v, ok := h.Fields["category"].(string); ok {
			hit.Category = v
		}
		out = append(out, hit)
	}
	return out, nil
}

// DocCount reports total documents in the index.
func (s *Index) DocCount() (int, error) {
	n, err := s.idx.DocCount()
	return int(n), err
}

func docID(itemID string) string { return "listing:" + itemID }

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, `.,;:!?"'()[]`)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
