package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_KnownLabels(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"ลำดับ", FieldSeq},
		{"ชื่อ", "first_name"},
		{"นามสกุล", "last_name"},
		{"ยศ/คำนำหน้าชื่อ", "title_rank"},
		{"Line ID", "line_id"},
		{"สถานะอัปเดต", FieldStatus},
		{"วันที่อัปเดตล่าสุด", FieldUpdatedAt},
	}
	for _, tt := range tests {
		id, ok := Resolve(tt.label)
		require.True(t, ok, "label %q should resolve", tt.label)
		assert.Equal(t, tt.want, id)
	}
}

func TestResolve_SanitizesVariants(t *testing.T) {
	// Uploaded headers vary in spacing and separators; all variants of the
	// same column must resolve to the same identifier.
	variants := []string{"Line ID", "Line_ID", "  Line ID  ", "Line/ID"}
	for _, label := range variants {
		id, ok := Resolve(label)
		require.True(t, ok, "variant %q should resolve", label)
		assert.Equal(t, "line_id", id)
	}
}

func TestResolve_UnknownLabel(t *testing.T) {
	_, ok := Resolve("คอลัมน์ที่ไม่รู้จัก")
	assert.False(t, ok)
}

func TestLabelOf_RoundTrip(t *testing.T) {
	for _, f := range All() {
		id, ok := Resolve(f.Label)
		require.True(t, ok)
		assert.Equal(t, f.ID, id)
		assert.Equal(t, f.Label, LabelOf(f.ID))
	}
}

func TestAll_UniqueIDsAndLabels(t *testing.T) {
	ids := make(map[string]bool)
	labels := make(map[string]bool)
	for _, f := range All() {
		assert.False(t, ids[f.ID], "duplicate id %q", f.ID)
		assert.False(t, labels[Sanitize(f.Label)], "duplicate label %q", f.Label)
		ids[f.ID] = true
		labels[Sanitize(f.Label)] = true
	}
}

func TestReservedFields(t *testing.T) {
	assert.True(t, IsReserved(FieldSeq))
	assert.True(t, IsReserved(FieldStatus))
	assert.True(t, IsReserved(FieldUpdatedAt))
	assert.False(t, IsReserved("first_name"))

	assert.True(t, IsTracking(FieldStatus))
	assert.True(t, IsTracking(FieldUpdatedAt))
	assert.False(t, IsTracking(FieldSeq))
}
