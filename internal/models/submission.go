// internal/models/submission.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SubmissionType is fixed when a submission is created.
type SubmissionType string

const (
	SubmissionTypeOrder        SubmissionType = "order"
	SubmissionTypeContact      SubmissionType = "contact"
	SubmissionTypeConsultation SubmissionType = "consultation"
)

// SubmissionTypes lists every type in display order.
var SubmissionTypes = []SubmissionType{
	SubmissionTypeOrder,
	SubmissionTypeContact,
	SubmissionTypeConsultation,
}

func (t SubmissionType) Valid() bool {
	switch t {
	case SubmissionTypeOrder, SubmissionTypeContact, SubmissionTypeConsultation:
		return true
	}
	return false
}

func ParseSubmissionType(s string) (SubmissionType, error) {
	t := SubmissionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown submission type %q", s)
	}
	return t, nil
}

// SubmissionStatus is the only field that changes after creation. Any status
// may follow any other; the admin screen moves new -> viewed -> responded.
type SubmissionStatus string

const (
	StatusNew       SubmissionStatus = "new"
	StatusViewed    SubmissionStatus = "viewed"
	StatusResponded SubmissionStatus = "responded"
)

var SubmissionStatuses = []SubmissionStatus{StatusNew, StatusViewed, StatusResponded}

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNew, StatusViewed, StatusResponded:
		return true
	}
	return false
}

func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	st := SubmissionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown submission status %q", s)
	}
	return st, nil
}

// Submission is one inquiry sent through a site form. Data is free-form and
// never changes after creation. Fields holds the order the form listed its
// fields in; it travels as the key order of the "data" object.
type Submission struct {
	ID        string            `json:"id"`
	Type      SubmissionType    `json:"type"`
	Timestamp int64             `json:"timestamp"` // milliseconds since epoch
	Data      map[string]string `json:"data"`
	Status    SubmissionStatus  `json:"status"`
	Fields    []string          `json:"-"`
}

// FieldOrder lists the data keys in form order. Keys missing from Fields
// follow, sorted.
func (s Submission) FieldOrder() []string {
	return orderedKeys(s.Fields, s.Data)
}

type plainSubmission Submission

func (s Submission) MarshalJSON() ([]byte, error) {
	data, err := encodeOrdered(s.Data, s.FieldOrder())
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID        string           `json:"id"`
		Type      SubmissionType   `json:"type"`
		Timestamp int64            `json:"timestamp"`
		Data      json.RawMessage  `json:"data"`
		Status    SubmissionStatus `json:"status"`
	}{s.ID, s.Type, s.Timestamp, data, s.Status})
}

func (s *Submission) UnmarshalJSON(b []byte) error {
	var aux struct {
		plainSubmission
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = Submission(aux.plainSubmission)
	s.Data, s.Fields = nil, nil
	if len(aux.Data) == 0 {
		return nil
	}
	keys, values, err := decodeOrdered(aux.Data)
	if err != nil {
		return fmt.Errorf("submission %s data: %w", s.ID, err)
	}
	s.Data, s.Fields = values, keys
	return nil
}

// Clone returns a copy that shares no map or slice with s.
func (s Submission) Clone() Submission {
	out := s
	if s.Data != nil {
		out.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			out.Data[k] = v
		}
	}
	if s.Fields != nil {
		out.Fields = append([]string(nil), s.Fields...)
	}
	return out
}

// Stats are derived counts over the whole collection.
type Stats struct {
	Total         int `json:"total"`
	New           int `json:"new"`
	Viewed        int `json:"viewed"`
	Responded     int `json:"responded"`
	Orders        int `json:"orders"`
	Contacts      int `json:"contacts"`
	Consultations int `json:"consultations"`
}

// TypeFromInterest maps the contact form's "interest" select to a
// submission type.
func TypeFromInterest(interest string) SubmissionType {
	v := strings.ToLower(strings.TrimSpace(interest))
	switch {
	case v == "":
		return SubmissionTypeContact
	case strings.Contains(v, "custom"), strings.Contains(v, "consult"), strings.Contains(v, "bespoke"):
		return SubmissionTypeConsultation
	case strings.Contains(v, "order"), strings.Contains(v, "buy"), strings.Contains(v, "purchase"), strings.Contains(v, "standard"):
		return SubmissionTypeOrder
	default:
		return SubmissionTypeContact
	}
}
