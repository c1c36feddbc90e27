// Package catalog is the fixed registry of alumni record fields. It maps the
// human-readable column labels used in uploaded and exported spreadsheets to
// the stable internal identifiers the store and editor work with. The catalog
// is compiled in and immutable at runtime; uploaded header text is never used
// as a storage field name.
package catalog

import "strings"

// Kind describes how a field's value is stored.
type Kind int

const (
	ShortText Kind = iota
	LongText
	Integer
)

// Reserved internal identifiers. Seq is the user-facing unique record number;
// Status and UpdatedAt are the confirmation tracking fields. They are always
// present and never renamed by catalog resolution.
const (
	FieldSeq       = "seq"
	FieldStatus    = "update_status"
	FieldUpdatedAt = "updated_at"
)

// Field describes one column: its external label (source of truth for import
// and export headers) and its internal identifier.
type Field struct {
	ID    string
	Label string
	Kind  Kind
}

// fields is the catalog in declared order. Labels mirror the class-70 survey
// spreadsheet headings.
var fields = []Field{
	{ID: FieldSeq, Label: "ลำดับ", Kind: Integer},
	{ID: "title_rank", Label: "ยศ/คำนำหน้าชื่อ", Kind: ShortText},
	{ID: "first_name", Label: "ชื่อ", Kind: ShortText},
	{ID: "last_name", Label: "นามสกุล", Kind: ShortText},
	{ID: "nickname", Label: "ชื่อเล่น", Kind: ShortText},
	{ID: "alias", Label: "ฉายา", Kind: ShortText},
	{ID: "club", Label: "ชมรม", Kind: ShortText},
	{ID: "former_name", Label: "ชื่อ นามสกุล เดิม", Kind: ShortText},
	{ID: "address", Label: "ที่อยู่", Kind: LongText},
	{ID: "phone", Label: "เบอร์โทรศัพท์", Kind: ShortText},
	{ID: "phone_alt", Label: "เบอร์โทรศัพท์ สำรอง", Kind: ShortText},
	{ID: "line_id", Label: "Line ID", Kind: ShortText},
	{ID: "facebook", Label: "Facebook", Kind: ShortText},
	{ID: "instagram", Label: "Instagram", Kind: ShortText},
	{ID: "work_status", Label: "สถานภาพ/อาชีพ ในปัจจุบัน", Kind: ShortText},
	{ID: "occupation", Label: "อาชีพปัจจุบัน", Kind: ShortText},
	{ID: "workplace", Label: "สถานที่ทำงานปัจจุบัน", Kind: ShortText},
	{ID: "job_title", Label: "ตำแหน่งในที่ทำงาน", Kind: ShortText},
	{ID: "country", Label: "ประเทศที่อาศัยอยู่", Kind: ShortText},
	{ID: "bureau", Label: "บช", Kind: ShortText},
	{ID: "position", Label: "ตำแหน่ง", Kind: ShortText},
	{ID: "notes", Label: "หมายเหตุ หน้าที่พิเศษ", Kind: LongText},
	{ID: FieldStatus, Label: "สถานะอัปเดต", Kind: ShortText},
	{ID: FieldUpdatedAt, Label: "วันที่อัปเดตล่าสุด", Kind: ShortText},
}

var (
	byLabel = make(map[string]string, len(fields))
	byID    = make(map[string]Field, len(fields))
)

func init() {
	for _, f := range fields {
		byLabel[Sanitize(f.Label)] = f.ID
		byID[f.ID] = f
	}
}

// Sanitize normalizes an external column label for lookup: surrounding
// whitespace is trimmed and interior spaces and slashes collapse to
// underscores, matching how uploaded headers have historically varied.
func Sanitize(label string) string {
	label = strings.TrimSpace(label)
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "/", "_")
	return label
}

// Resolve maps an external column label to its internal identifier.
// The second return is false when the label is not in the catalog.
func Resolve(label string) (string, bool) {
	id, ok := byLabel[Sanitize(label)]
	return id, ok
}

// LabelOf returns the declared external label for an internal identifier,
// or the empty string if the identifier is unknown.
func LabelOf(id string) string {
	return byID[id].Label
}

// All returns the catalog in declared order.
func All() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// IsReserved reports whether id is the sequence identifier or a tracking field.
func IsReserved(id string) bool {
	return id == FieldSeq || id == FieldStatus || id == FieldUpdatedAt
}

// IsTracking reports whether id is one of the confirmation tracking fields.
func IsTracking(id string) bool {
	return id == FieldStatus || id == FieldUpdatedAt
}
