package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// Incident describes one degraded request.
type Incident struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId,omitempty"`
	Endpoint  string    `json:"endpoint"`
	Code      string    `json:"code"`
	Category  string    `json:"category"`
	Provider  string    `json:"provider,omitempty"`
	Status    int       `json:"status,omitempty"`
	Lang      string    `json:"lang,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"@timestamp"`
}

// IncidentSink persists incidents.
type IncidentSink interface {
	Record(ctx context.Context, incident Incident) error
}

// NopSink discards incidents.
type NopSink struct{}

func (NopSink) Record(context.Context, Incident) error { return nil }

// ElasticsearchSink indexes incidents as documents.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Record(ctx context.Context, incident Incident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	if incident.Timestamp.IsZero() {
		incident.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("encode incident: %w", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(incident.ID),
	)
	if err != nil {
		return fmt.Errorf("index incident: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index incident: %s", res.Status())
	}
	return nil
}
