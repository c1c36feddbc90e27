// Package exporter serializes the record store back to a CSV using the field
// catalog's external labels. When a previous import recorded the uploaded
// file's header order, the export reproduces that column layout.
package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/metrics"
	"github.com/pych2536/rpca70/internal/member/store"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

// LayoutSource supplies the header order of the last successful import.
type LayoutSource interface {
	HeaderOrder() ([]string, error)
}

// Exporter writes the full record set as a CSV document.
type Exporter struct {
	store   store.Store
	layout  LayoutSource
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New constructs the export writer. metrics may be nil.
func New(st store.Store, layout LayoutSource, m *metrics.Metrics) *Exporter {
	return &Exporter{
		store:   st,
		layout:  layout,
		metrics: m,
		tracer:  otel.Tracer("rpca70/member"),
	}
}

// ExportAll serializes every record. The header uses the last-imported column
// order when known, falling back to the catalog's declared order; the tracking
// columns are always present. Returns an empty-store error when there is
// nothing to export.
func (e *Exporter) ExportAll(ctx context.Context) ([]byte, error) {
	ctx, span := e.tracer.Start(ctx, "member.export_all")
	defer span.End()

	records, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not list records")
	}
	if len(records) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyStore, "no records to export")
	}

	header := e.headerLabels()

	var buf bytes.Buffer
	// UTF-8 BOM so spreadsheet tools detect the Thai text encoding.
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not write export")
	}
	for _, rec := range records {
		row := make([]string, len(header))
		for i, label := range header {
			id, ok := catalog.Resolve(label)
			if !ok {
				// Pass-through column retained from the import; we keep the
				// column but hold no data for it.
				continue
			}
			switch id {
			case catalog.FieldSeq:
				row[i] = strconv.Itoa(rec.SequenceID)
			case catalog.FieldStatus:
				row[i] = rec.Status.Display()
			case catalog.FieldUpdatedAt:
				row[i] = rec.LastUpdated
			default:
				row[i], _ = rec.Field(id)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not write export")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not write export")
	}

	span.SetAttributes(attribute.Int("export.records", len(records)))
	e.metrics.IncrementExports()
	return buf.Bytes(), nil
}

// headerLabels decides the export column order.
func (e *Exporter) headerLabels() []string {
	var header []string
	if order, err := e.layout.HeaderOrder(); err == nil && len(order) > 0 {
		header = order
	} else {
		for _, f := range catalog.All() {
			header = append(header, f.Label)
		}
	}

	// Tracking columns are always exported, whatever the imported file had.
	seen := make(map[string]bool, len(header))
	for _, label := range header {
		if id, ok := catalog.Resolve(label); ok {
			seen[id] = true
		}
	}
	for _, id := range []string{catalog.FieldStatus, catalog.FieldUpdatedAt} {
		if !seen[id] {
			header = append(header, catalog.LabelOf(id))
		}
	}
	return header
}
