// Package importer turns an uploaded CSV into a full replacement of the
// record store. Headers are reconciled against the field catalog, the
// identifier column is coerced, and the replacement commits atomically:
// either every accepted row lands and the previous contents are discarded, or
// the store is left untouched.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/metrics"
	"github.com/pych2536/rpca70/internal/member/models"
	"github.com/pych2536/rpca70/internal/member/store"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

// LayoutStore persists the header order of the last successful import.
type LayoutStore interface {
	SetHeaderOrder(order []string) error
}

// Importer is the CSV import pipeline.
type Importer struct {
	store   store.Store
	layout  LayoutStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New constructs the import pipeline. metrics may be nil.
func New(st store.Store, layout LayoutStore, logger *slog.Logger, m *metrics.Metrics) *Importer {
	return &Importer{
		store:   st,
		layout:  layout,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("rpca70/member"),
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ImportReplace parses the uploaded file and atomically replaces the record
// store contents with the accepted rows.
//
// Whole-file failures (empty file, unparseable structure, no identifier
// column) abort before any store mutation. Per-row identifier problems are
// accumulated in the report and never abort the batch. When the same
// identifier appears twice, the later row in file order wins.
func (im *Importer) ImportReplace(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	ctx, span := im.tracer.Start(ctx, "member.import_replace")
	defer span.End()

	report, err := im.importReplace(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		im.metrics.ObserveImport("failure", 0)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("import.accepted", report.Accepted),
		attribute.Int("import.rejected", len(report.Rejected)),
	)
	im.metrics.ObserveImport("success", report.Accepted)
	return report, nil
}

func (im *Importer) importReplace(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	// Rows with fewer cells than the header are tolerated: trailing cells are
	// treated as absent. Structural problems (unterminated quotes) still fail.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeValidation, "uploaded file is empty")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "uploaded file is not readable as CSV")
	}

	// The recorded order keeps the literal cells so a later export reproduces
	// the uploaded layout exactly; resolution tolerates the padding.
	headerOrder := make([]string, len(header))
	copy(headerOrder, header)
	colIDs := make([]string, len(header))
	seqCol := -1
	for i, cell := range header {
		if id, ok := catalog.Resolve(cell); ok {
			colIDs[i] = id
			if id == catalog.FieldSeq && seqCol < 0 {
				seqCol = i
			}
		}
		// Unmatched headers stay as opaque pass-through columns; extra
		// commentary columns in an upload never fail the import.
	}
	if seqCol < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "no column resolves to the sequence identifier")
	}

	var (
		accepted []*models.Record
		bySeq    = make(map[int]int)
		rejected []models.RejectedRow
		rowIdx   int
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "uploaded file is not readable as CSV")
		}
		rowIdx++

		seq, ok := coerceIdentifier(row, seqCol)
		if !ok {
			rejected = append(rejected, models.RejectedRow{Index: rowIdx, Reason: models.ReasonBadIdentifier})
			continue
		}

		rec := buildRecord(seq, row, colIDs)
		if prev, dup := bySeq[seq]; dup {
			// Last occurrence in file order wins.
			accepted[prev] = rec
			continue
		}
		bySeq[seq] = len(accepted)
		accepted = append(accepted, rec)
	}

	if err := im.store.ReplaceAll(ctx, accepted); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not replace records")
	}

	if err := im.layout.SetHeaderOrder(headerOrder); err != nil {
		// The dataset replaced fine; a stale export layout is recoverable.
		im.logger.WarnContext(ctx, "could not persist header order", "error", err)
	}

	im.logger.InfoContext(ctx, "import replaced records",
		"accepted", len(accepted),
		"rejected", len(rejected),
	)

	return &models.ImportReport{
		Accepted:    len(accepted),
		Rejected:    rejected,
		HeaderOrder: headerOrder,
	}, nil
}

// coerceIdentifier extracts and validates the sequence cell of one row.
func coerceIdentifier(row []string, seqCol int) (int, bool) {
	if seqCol >= len(row) {
		return 0, false
	}
	raw := strings.TrimSpace(row[seqCol])
	if raw == "" {
		return 0, false
	}
	seq, err := strconv.Atoi(raw)
	if err != nil || seq <= 0 {
		return 0, false
	}
	return seq, true
}

// buildRecord maps one data row onto a record. Columns the catalog did not
// resolve are skipped; a column missing from a short row stays absent rather
// than defaulting to the empty string.
func buildRecord(seq int, row []string, colIDs []string) *models.Record {
	rec := &models.Record{
		SequenceID:  seq,
		Fields:      make(map[string]string),
		Status:      models.StatusUnconfirmed,
		LastUpdated: models.PlaceholderUpdatedAt,
	}
	for i, id := range colIDs {
		if id == "" || id == catalog.FieldSeq || i >= len(row) {
			continue
		}
		cell := row[i]
		switch id {
		case catalog.FieldStatus:
			// Non-empty tracking values from a re-imported snapshot are
			// preserved so confirmation progress survives a round trip.
			if cell != "" {
				rec.Status = models.StatusFromDisplay(cell)
			}
		case catalog.FieldUpdatedAt:
			if cell != "" {
				rec.LastUpdated = cell
			}
		default:
			rec.Fields[id] = cell
		}
	}
	return rec
}
