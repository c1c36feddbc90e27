// Package models holds the domain types for alumni records.
package models

// Status is the confirmation state of a record.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
)

// Display strings shown to alumni. These are also the values written to the
// tracking columns on export, so a re-imported snapshot round-trips status.
const (
	DisplayUnconfirmed = "ยังไม่ได้ยืนยัน"
	DisplayConfirmed   = "ยืนยัน/อัปเดตแล้ว"

	// PlaceholderUpdatedAt is the last-updated value for records that have
	// never been confirmed, matching the wording of the seed spreadsheet.
	PlaceholderUpdatedAt = "ข้อมูล ณ วันที่ 15 เมษายน 2567"
)

// Display returns the user-facing string for a status.
func (s Status) Display() string {
	if s == StatusConfirmed {
		return DisplayConfirmed
	}
	return DisplayUnconfirmed
}

// StatusFromDisplay maps a tracking-column cell back to a status. Anything
// other than the confirmed display string is treated as unconfirmed.
func StatusFromDisplay(s string) Status {
	if s == DisplayConfirmed {
		return StatusConfirmed
	}
	return StatusUnconfirmed
}

// Record is one alumnus's stored profile plus confirmation tracking.
//
// Fields maps internal field identifiers to values. A key that is absent means
// the source column was never present for this record; a key holding "" means
// the column was present but blank. The distinction is preserved for
// round-trip fidelity with the storage layer.
type Record struct {
	SequenceID  int
	Fields      map[string]string
	Status      Status
	LastUpdated string
}

// Field returns the value for an internal identifier and whether it is set.
func (r *Record) Field(id string) (string, bool) {
	v, ok := r.Fields[id]
	return v, ok
}

// SetField sets the value for an internal identifier.
func (r *Record) SetField(id, value string) {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[id] = value
}

// Clone returns a deep copy so callers never share the field map with the store.
func (r *Record) Clone() *Record {
	out := &Record{
		SequenceID:  r.SequenceID,
		Status:      r.Status,
		LastUpdated: r.LastUpdated,
	}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Stats summarizes confirmation progress for the admin dashboard.
type Stats struct {
	Total       int     `json:"total"`
	Confirmed   int     `json:"confirmed"`
	Unconfirmed int     `json:"unconfirmed"`
	Percentage  float64 `json:"percentage"`
}

// RejectReason classifies why an import row was excluded.
type RejectReason string

const (
	// ReasonBadIdentifier marks a row whose sequence cell is missing or not a
	// positive integer.
	ReasonBadIdentifier RejectReason = "bad_identifier"
)

// RejectedRow records one excluded import row. Index is the 1-based data row
// position in the uploaded file, not counting the header.
type RejectedRow struct {
	Index  int          `json:"index"`
	Reason RejectReason `json:"reason"`
}

// ImportReport is the outcome of a successful import-replace.
type ImportReport struct {
	Accepted    int           `json:"accepted"`
	Rejected    []RejectedRow `json:"rejected,omitempty"`
	HeaderOrder []string      `json:"header_order"`
}
