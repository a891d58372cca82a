// Package events publishes tagging notifications on NATS.
//
// Events are plain JSON on per-type subjects under "<prefix>.metadata.written"
// and "<prefix>.run.completed". Publishing is best effort: failures are
// logged and never fail the run.
package events

import (
	"encoding/json"
	"log/slog"
	"time"
)

// DefaultSubjectPrefix prefixes every subject when none is configured.
const DefaultSubjectPrefix = "semtag"

// Subject suffixes.
const (
	SubjectMetadataWritten = "metadata.written"
	SubjectRunCompleted    = "run.completed"
)

// MetadataWrittenEvent is published after a table's metadata was stored.
type MetadataWrittenEvent struct {
	RunID         string            `json:"run_id"`
	TableID       string            `json:"table_id"`
	Table         map[string]string `json:"table"`
	ColumnEntries int               `json:"column_entries"`
	Timestamp     time.Time         `json:"timestamp"`
}

// RunCompletedEvent summarizes a finished run.
type RunCompletedEvent struct {
	RunID          string    `json:"run_id"`
	TablesListed   int       `json:"tables_listed"`
	TablesExcluded int       `json:"tables_excluded"`
	TablesTagged   int       `json:"tables_tagged"`
	Categories     []string  `json:"categories"`
	DryRun         bool      `json:"dry_run"`
	DurationMS     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// Conn is the subset of *nats.Conn used by the Publisher.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// Publisher sends events for one run. A nil *Publisher discards everything.
type Publisher struct {
	conn   Conn
	prefix string
	runID  string
	logger *slog.Logger
}

// NewPublisher creates a Publisher. An empty prefix uses DefaultSubjectPrefix.
func NewPublisher(conn Conn, prefix, runID string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		runID:  runID,
		logger: logger,
	}
}

// Subject returns the full subject for suffix.
func (p *Publisher) Subject(suffix string) string {
	return p.prefix + "." + suffix
}

// MetadataWritten publishes a MetadataWrittenEvent for tableID.
func (p *Publisher) MetadataWritten(tableID string, table map[string]string, columnEntries int) {
	if p == nil {
		return
	}
	p.publish(SubjectMetadataWritten, MetadataWrittenEvent{
		RunID:         p.runID,
		TableID:       tableID,
		Table:         table,
		ColumnEntries: columnEntries,
		Timestamp:     time.Now().UTC(),
	})
}

// RunCompleted publishes the run summary and flushes the connection.
func (p *Publisher) RunCompleted(ev RunCompletedEvent) {
	if p == nil {
		return
	}
	ev.RunID = p.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	p.publish(SubjectRunCompleted, ev)

	if err := p.conn.Flush(); err != nil {
		p.logger.Warn("Failed to flush events", "error", err)
	}
}

func (p *Publisher) publish(suffix string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Failed to marshal event", "subject", suffix, "error", err)
		return
	}

	subject := p.Subject(suffix)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
