package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

const queryAnalyzer = "history_query"

// index is an in-memory bleve index over remembered queries used for
// prefix suggestions. It is rebuilt from the store on open.
type index struct {
	idx bleve.Index
}

func newIndex() (*index, error) {
	im, err := buildIndexMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("creating suggestion index: %w", err)
	}
	return &index{idx: idx}, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(queryAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("registering analyzer: %w", err)
	}
	im.DefaultAnalyzer = queryAnalyzer

	dm := bleve.NewDocumentMapping()

	q := bleve.NewTextFieldMapping()
	q.Analyzer = queryAnalyzer
	q.Store = true

	lastUsed := bleve.NewNumericFieldMapping()
	lastUsed.Store = true

	count := bleve.NewNumericFieldMapping()
	count.Store = true

	dm.AddFieldMappingsAt("query", q)
	dm.AddFieldMappingsAt("last_used", lastUsed)
	dm.AddFieldMappingsAt("count", count)

	im.DefaultMapping = dm
	return im, nil
}

func (x *index) put(entries ...Entry) error {
	batch := x.idx.NewBatch()
	for _, e := range entries {
		if err := batch.Index(Key(e.Query), map[string]any{
			"query":     e.Query,
			"last_used": float64(e.LastUsed.UnixNano()),
			"count":     float64(e.Count),
		}); err != nil {
			return err
		}
	}
	return x.idx.Batch(batch)
}

func (x *index) remove(queries ...string) error {
	batch := x.idx.NewBatch()
	for _, q := range queries {
		batch.Delete(Key(q))
	}
	return x.idx.Batch(batch)
}

// tokens analyzes input with the same analyzer used at index time.
func (x *index) tokens(input string) []string {
	a := x.idx.Mapping().AnalyzerNamed(queryAnalyzer)
	if a == nil {
		return nil
	}
	var out []string
	for _, tok := range a.Analyze([]byte(input)) {
		out = append(out, string(tok.Term))
	}
	return out
}

// suggest returns entries whose words start with every token of prefix, most
// recently used first.
func (x *index) suggest(prefix string, limit int) ([]Entry, error) {
	tokens := x.tokens(prefix)
	if len(tokens) == 0 {
		return nil, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokens {
		pq := bleve.NewPrefixQuery(tok)
		pq.SetField("query")
		qs = append(qs, pq)
	}
	q := bleve.NewConjunctionQuery(qs...)

	size := limit
	if size <= 0 {
		size = 10
	}
	req := bleve.NewSearchRequestOptions(q, size*4, 0, false)
	req.Fields = []string{"query", "last_used", "count"}
	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching suggestions: %w", err)
	}

	out := make([]Entry, 0, len(res.Hits))
	for _, h := range res.Hits {
		e := Entry{}
		if s, ok := h.Fields["query"].(string); ok {
			e.Query = s
		}
		if n, ok := h.Fields["last_used"].(float64); ok {
			e.LastUsed = time.Unix(0, int64(n))
		}
		if n, ok := h.Fields["count"].(float64); ok {
			e.Count = int(n)
		}
		if e.Query != "" {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUsed.After(out[j].LastUsed)
	})
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func (x *index) close() error {
	return x.idx.Close()
}
