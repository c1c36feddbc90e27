package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/importer"
	"github.com/pych2536/rpca70/internal/member/models"
	"github.com/pych2536/rpca70/internal/member/store"
	"github.com/pych2536/rpca70/internal/settings"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

func newTestExporter(t *testing.T) (*Exporter, *store.InMemory, *settings.Store) {
	t.Helper()
	st := store.NewInMemory()
	set := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	return New(st, set, nil), st, set
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportAll_EmptyStore(t *testing.T) {
	ex, _, _ := newTestExporter(t)

	_, err := ex.ExportAll(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmptyStore))
}

func TestExportAll_CatalogOrderWhenNoImportRecorded(t *testing.T) {
	ex, st, _ := newTestExporter(t)
	ctx := context.Background()

	rec := &models.Record{SequenceID: 1, Status: models.StatusUnconfirmed, LastUpdated: models.PlaceholderUpdatedAt}
	rec.SetField("first_name", "A")
	require.NoError(t, st.ReplaceAll(ctx, []*models.Record{rec}))

	data, err := ex.ExportAll(ctx)
	require.NoError(t, err)
	rows := parseCSV(t, data)

	var want []string
	for _, f := range catalog.All() {
		want = append(want, f.Label)
	}
	assert.Equal(t, want, rows[0])
}

func TestExportAll_UsesRecordedHeaderOrder(t *testing.T) {
	ex, st, set := newTestExporter(t)
	ctx := context.Background()

	require.NoError(t, set.SetHeaderOrder([]string{"ชื่อ", "ลำดับ", "คอลัมน์พิเศษ"}))

	rec := &models.Record{SequenceID: 7, Status: models.StatusConfirmed, LastUpdated: "20 May 2024, 10:00"}
	rec.SetField("first_name", "E")
	require.NoError(t, st.ReplaceAll(ctx, []*models.Record{rec}))

	data, err := ex.ExportAll(ctx)
	require.NoError(t, err)
	rows := parseCSV(t, data)

	// Recorded order first, then the tracking columns appended because the
	// imported file did not carry them.
	assert.Equal(t, []string{
		"ชื่อ", "ลำดับ", "คอลัมน์พิเศษ",
		catalog.LabelOf(catalog.FieldStatus), catalog.LabelOf(catalog.FieldUpdatedAt),
	}, rows[0])

	require.Len(t, rows, 2)
	assert.Equal(t, "E", rows[1][0])
	assert.Equal(t, "7", rows[1][1])
	assert.Equal(t, "", rows[1][2], "pass-through column has no stored data")
	assert.Equal(t, models.DisplayConfirmed, rows[1][3])
	assert.Equal(t, "20 May 2024, 10:00", rows[1][4])
}

func TestExportAll_AbsentFieldsRenderEmpty(t *testing.T) {
	ex, st, _ := newTestExporter(t)
	ctx := context.Background()

	rec := &models.Record{SequenceID: 1, Status: models.StatusUnconfirmed, LastUpdated: models.PlaceholderUpdatedAt}
	require.NoError(t, st.ReplaceAll(ctx, []*models.Record{rec}))

	data, err := ex.ExportAll(ctx)
	require.NoError(t, err)
	rows := parseCSV(t, data)
	require.Len(t, rows, 2)

	for i, f := range catalog.All() {
		switch f.ID {
		case catalog.FieldSeq:
			assert.Equal(t, "1", rows[1][i])
		case catalog.FieldStatus:
			assert.Equal(t, models.DisplayUnconfirmed, rows[1][i])
		case catalog.FieldUpdatedAt:
			assert.Equal(t, models.PlaceholderUpdatedAt, rows[1][i])
		default:
			assert.Equal(t, "", rows[1][i])
		}
	}
}

func TestRoundTrip_ImportExportImport(t *testing.T) {
	st := store.NewInMemory()
	set := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	im := importer.New(st, set, log, nil)
	ex := New(st, set, nil)
	ctx := context.Background()

	csvData := "ลำดับ,ชื่อ,นามสกุล,ชื่อเล่น\n1,สมชาย,ใจดี,ชาย\n2,สมหญิง,สุขใจ,\n"
	_, err := im.ImportReplace(ctx, strings.NewReader(csvData))
	require.NoError(t, err)

	// Confirm one record so the export carries forward a confirmed status.
	confirmed, err := st.Get(ctx, 1)
	require.NoError(t, err)
	confirmed.Status = models.StatusConfirmed
	confirmed.LastUpdated = "20 May 2024, 10:00"
	require.NoError(t, st.Update(ctx, confirmed))

	exported, err := ex.ExportAll(ctx)
	require.NoError(t, err)

	// Re-import the exported snapshot into a fresh store.
	st2 := store.NewInMemory()
	set2 := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	im2 := importer.New(st2, set2, log, nil)
	report, err := im2.ImportReplace(ctx, bytes.NewReader(exported))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Accepted)

	orig, err := st.ListAll(ctx)
	require.NoError(t, err)
	for _, want := range orig {
		got, err := st2.Get(ctx, want.SequenceID)
		require.NoError(t, err)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.LastUpdated, got.LastUpdated)
		for _, f := range catalog.All() {
			if catalog.IsReserved(f.ID) {
				continue
			}
			wantVal, _ := want.Field(f.ID)
			gotVal, _ := got.Field(f.ID)
			assert.Equal(t, wantVal, gotVal, "field %s of record %d", f.ID, want.SequenceID)
		}
	}
}
