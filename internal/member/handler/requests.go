package handler

import (
	"strings"

	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/models"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

// SearchRequest carries the name search form.
type SearchRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *SearchRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

func (r *SearchRequest) Validate() error {
	if r.FirstName == "" || r.LastName == "" {
		return dErrors.New(dErrors.CodeBadRequest, "first and last name are required")
	}
	return nil
}

// SearchResponse points the caller at the matched record.
type SearchResponse struct {
	SequenceID int `json:"sequence_id"`
}

// EditRequest is a partial patch keyed by external column labels, matching
// the form field names the rendering layer submits. Note the asymmetry with
// RecordResponse, which keys Fields by internal identifier: submissions speak
// the spreadsheet's language, responses the API's. Labels lists the external
// label for every editable field so clients need not hardcode the mapping.
type EditRequest struct {
	Fields map[string]string `json:"fields"`
}

// RecordResponse is the JSON view of one record. Fields holds only the values
// present for this record, keyed by internal field identifier; Labels maps
// those identifiers back to the external column labels EditRequest expects.
type RecordResponse struct {
	SequenceID  int               `json:"sequence_id"`
	Fields      map[string]string `json:"fields"`
	Labels      map[string]string `json:"labels"`
	Status      string            `json:"status"`
	StatusLabel string            `json:"status_label"`
	LastUpdated string            `json:"last_updated"`
}

// AdminListResponse is the dashboard payload.
type AdminListResponse struct {
	Records []*RecordResponse `json:"records"`
	Stats   models.Stats      `json:"stats"`
}

func toRecordResponse(rec *models.Record) *RecordResponse {
	fields := make(map[string]string, len(rec.Fields))
	for id, v := range rec.Fields {
		fields[id] = v
	}
	return &RecordResponse{
		SequenceID:  rec.SequenceID,
		Fields:      fields,
		Labels:      editableLabels(),
		Status:      string(rec.Status),
		StatusLabel: rec.Status.Display(),
		LastUpdated: rec.LastUpdated,
	}
}

// editableLabels maps internal identifiers to the external labels an edit
// patch is keyed by, for every non-reserved catalog field.
func editableLabels() map[string]string {
	out := make(map[string]string)
	for _, f := range catalog.All() {
		if catalog.IsReserved(f.ID) {
			continue
		}
		out[f.ID] = f.Label
	}
	return out
}

func toRecordResponses(recs []*models.Record) []*RecordResponse {
	out := make([]*RecordResponse, len(recs))
	for i, rec := range recs {
		out[i] = toRecordResponse(rec)
	}
	return out
}
