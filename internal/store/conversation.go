package store

import (
	"encoding/csv"
	"os"

	"github.com/agenthands/detour/internal/deviation"
)

var conversationHeader = []string{"conversation_id", "origin", "destination", "anomaly_time", "question", "answer"}

// ConversationLog is the append-only CSV log of question/answer exchanges.
type ConversationLog struct {
	path string
}

func NewConversationLog(path string) *ConversationLog {
	return &ConversationLog{path: path}
}

// Append writes one exchange to the log, creating the file with a header row
// on first use. Rows are never mutated or deleted.
func (l *ConversationLog) Append(rec deviation.ConversationRecord) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(conversationHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{
		rec.ConversationID,
		rec.Origin,
		rec.Destination,
		rec.AnomalyTime,
		rec.Question,
		rec.Answer,
	}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
