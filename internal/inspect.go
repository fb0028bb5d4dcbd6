package internal

import (
	"chat-sync/domain"
	"chat-sync/infrastructure/storage"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

type InspectRow struct {
	Key          string
	Type         string
	Timestamp    string
	EntityID     string
	Conversation string
	Detail       string
}

// RowMapper turns a raw key/value pair into a printable row.
type RowMapper func(key string, val []byte) InspectRow

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// DefaultMapper only knows the key layout "{type}:{conversation}:{timestamp}:{id}".
func DefaultMapper(key string, val []byte) InspectRow {
	parts := strings.Split(key, ":")
	row := InspectRow{
		Key:          key,
		Type:         "RAW",
		Timestamp:    "--:--:--",
		EntityID:     "--------",
		Conversation: "-",
		Detail:       "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	if len(parts) >= 4 {
		row.Conversation = short(parts[1])
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			row.Timestamp = time.Unix(0, tsNano).Format("15:04:05")
		}
		row.EntityID = short(parts[3])
	}
	return row
}

// StoreMapper decodes the message store's records.
func StoreMapper(key string, val []byte) InspectRow {
	row := DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "msg:"):
		row.Type = "MESSAGE"
		message, err := storage.DecodeMessage(val)
		if err != nil {
			row.Detail = err.Error()
			return row
		}
		row.Detail = message.Sender.String() + ": " + strings.Join(message.Body, " / ")
		if len(message.Attachments) > 0 {
			row.Detail += " [" + strconv.Itoa(len(message.Attachments)) + " attachment(s)]"
		}
	case strings.HasPrefix(key, "conv:"):
		row.Type = "CONVERSATION"
		conversation, err := storage.DecodeConversation(val)
		if err != nil {
			row.Detail = err.Error()
			return row
		}
		row.EntityID = short(conversation.ID.String())
		row.Conversation = row.EntityID
		row.Detail = strings.Join(lo.Map(conversation.Recipients, func(p domain.ParticipantID, _ int) string {
			return p.String()
		}), ", ")
	case strings.HasPrefix(key, "conv-key:"):
		row.Type = "RECIPIENTS"
		row.Detail = string(val)
	case strings.HasPrefix(key, "idx:"):
		row.Type = "INDEX"
		row.Detail = string(val)
	case strings.HasPrefix(key, "file:"):
		row.Type = "FILE"
		parts := strings.Split(key, ":")
		if len(parts) == 3 {
			row.EntityID = short(parts[1])
		}
	}
	return row
}
