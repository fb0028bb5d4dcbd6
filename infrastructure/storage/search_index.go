package storage

import (
	"chat-sync/domain"
	"context"
	"fmt"
	"strings"

	"github.com/blugelabs/bluge"
	"github.com/blugelabs/bluge/analysis/analyzer"
	"github.com/samber/lo"
)

const (
	fieldID           = "_id"
	fieldBody         = "body"
	fieldConversation = "conversation"
)

// SearchIndex is the full text index over message bodies.
// Documents are keyed by message id and scoped by conversation.
type SearchIndex struct {
	writer *bluge.Writer
	limit  int
}

func NewSearchIndex(writer *bluge.Writer, limit int) *SearchIndex {
	return &SearchIndex{writer: writer, limit: limit}
}

// Index adds or replaces the document of a message.
func (s *SearchIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewKeywordField(fieldConversation, message.ConversationID.String())).
		AddField(bluge.NewTextField(fieldBody, strings.Join(message.Body, "\n")).
			WithAnalyzer(analyzer.NewStandardAnalyzer()))
	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("failed to index message %s: %w", message.ID, err)
	}
	return nil
}

// Search returns the ids of the conversation's messages matching keyword.
func (s *SearchIndex) Search(ctx context.Context, conversationID domain.ConversationID, keyword string) (map[domain.MessageID]struct{}, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(keyword).
			SetField(fieldBody).
			SetAnalyzer(analyzer.NewStandardAnalyzer())).
		AddMust(bluge.NewTermQuery(conversationID.String()).SetField(fieldConversation))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(s.limit, query))
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", keyword, err)
	}

	var ids []domain.MessageID
	match, err := it.Next()
	for err == nil && match != nil {
		var parseErr error
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			if field != fieldID {
				return true
			}
			id, err := domain.ParseMessageID(string(value))
			if err != nil {
				parseErr = err
				return false
			}
			ids = append(ids, id)
			return false
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if parseErr != nil {
			return nil, parseErr
		}
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(ids, func(id domain.MessageID) (domain.MessageID, struct{}) {
		return id, struct{}{}
	}), nil
}
