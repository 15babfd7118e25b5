// internal/notify/audit.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"

	"carelink-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// AuditEntry records one dispatched intent and its delivery outcome.
type AuditEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	EventType string `json:"eventType"`
	Title     string `json:"title"`
	Tokens    int    `json:"tokens"`
	Pushed    int    `json:"pushed"`
	Emailed   bool   `json:"emailed"`
	Timestamp string `json:"timestamp"`
}

// AuditWriter appends delivery audit entries to an Elasticsearch index,
// fire-and-forget. A nil writer is valid and does nothing.
type AuditWriter struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewAuditWriter(client *elasticsearch.Client, index string, log logger.Logger) *AuditWriter {
	return &AuditWriter{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "notification-audit"}),
	}
}

func (w *AuditWriter) Record(ctx context.Context, entry AuditEntry) {
	if w == nil || w.client == nil {
		return
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return
	}

	res, err := w.client.Index(
		w.index,
		bytes.NewReader(body),
		w.client.Index.WithDocumentID(entry.ID),
		w.client.Index.WithContext(ctx),
	)
	if err != nil {
		w.logger.Debug("audit write failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		w.logger.Debug("audit write rejected", map[string]interface{}{"status": res.Status()})
	}
}
