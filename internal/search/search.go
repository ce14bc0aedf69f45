package search

import (
	"fmt"
	"log"
	"os"

	"github.com/notelab/sidechat/internal/chat"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Result is a full-text search hit over stored session messages.
type Result struct {
	SessionID string
	ItemID    string
	Role      string
	Title     string
	Score     float64
}

// Index provides full-text search over session transcripts. One document is
// indexed per message; separators and hidden messages are skipped.
type Index struct {
	index bleve.Index
	path  string
}

// NewIndex creates or opens the search index at basePath. A corrupted index
// is deleted and rebuilt empty; callers re-populate it from the store.
func NewIndex(basePath string) (*Index, error) {
	indexPath := basePath + ".bleve"

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
	} else if err != nil {
		log.Printf("search index appears corrupted (error: %v), recreating", err)

		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted index: %w", err)
		}

		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
	}

	return &Index{
		index: index,
		path:  indexPath,
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	sessionIDField := bleve.NewTextFieldMapping()
	sessionIDField.Analyzer = keyword.Name
	sessionIDField.Store = true
	sessionIDField.Index = true
	docMapping.AddFieldMappingsAt("session_id", sessionIDField)

	itemIDField := bleve.NewTextFieldMapping()
	itemIDField.Analyzer = keyword.Name
	itemIDField.Store = true
	itemIDField.Index = true
	docMapping.AddFieldMappingsAt("item_id", itemIDField)

	roleField := bleve.NewTextFieldMapping()
	roleField.Analyzer = keyword.Name
	roleField.Store = true
	roleField.Index = true
	docMapping.AddFieldMappingsAt("role", roleField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	titleField.Index = true
	docMapping.AddFieldMappingsAt("title", titleField)

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = docMapping

	return indexMapping
}

// IndexSession replaces a session's documents with its current messages.
func (idx *Index) IndexSession(sess *chat.Session) error {
	if err := idx.DeleteSession(sess.ID); err != nil {
		return err
	}

	batch := idx.index.NewBatch()
	for _, item := range sess.Items {
		if !item.Attachable() || item.Content == "" {
			continue
		}

		doc := map[string]interface{}{
			"session_id": sess.ID,
			"item_id":    item.ID,
			"role":       string(item.Role),
			"title":      sess.Title,
			"content":    item.Content,
		}

		if err := batch.Index(docID(sess.ID, item.ID), doc); err != nil {
			return fmt.Errorf("failed to add message %s to batch: %w", item.ID, err)
		}
	}

	return idx.index.Batch(batch)
}

// DeleteSession removes all documents belonging to a session.
func (idx *Index) DeleteSession(sessionID string) error {
	q := bleve.NewTermQuery(sessionID)
	q.SetField("session_id")

	req := bleve.NewSearchRequest(q)
	req.Size = 10000

	res, err := idx.index.Search(req)
	if err != nil {
		return fmt.Errorf("failed to find session documents: %w", err)
	}

	batch := idx.index.NewBatch()
	for _, hit := range res.Hits {
		batch.Delete(hit.ID)
	}

	return idx.index.Batch(batch)
}

// Search runs a full-text query over message content and session titles.
// When sessionID is non-empty results are restricted to that session.
func (idx *Index) Search(query string, sessionID string, k int) ([]Result, error) {
	matchQuery := bleve.NewMatchQuery(query)

	var searchQuery = bleve.NewConjunctionQuery(matchQuery)
	if sessionID != "" {
		sessQuery := bleve.NewTermQuery(sessionID)
		sessQuery.SetField("session_id")
		searchQuery = bleve.NewConjunctionQuery(matchQuery, sessQuery)
	}

	req := bleve.NewSearchRequest(searchQuery)
	req.Size = k
	req.Fields = []string{"session_id", "item_id", "role", "title"}

	res, err := idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		result := Result{Score: hit.Score}
		if v, ok := hit.Fields["session_id"].(string); ok {
			result.SessionID = v
		}
		if v, ok := hit.Fields["item_id"].(string); ok {
			result.ItemID = v
		}
		if v, ok := hit.Fields["role"].(string); ok {
			result.Role = v
		}
		if v, ok := hit.Fields["title"].(string); ok {
			result.Title = v
		}
		results = append(results, result)
	}

	return results, nil
}

// Close closes the underlying index.
func (idx *Index) Close() error {
	return idx.index.Close()
}

// Path returns the filesystem path of the search index.
func (idx *Index) Path() string {
	return idx.path
}

func docID(sessionID, itemID string) string {
	return sessionID + "/" + itemID
}
