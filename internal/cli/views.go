package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"swedana-forms/internal/models"
)

// submissionTable renders a list as aligned columns in text mode.
type submissionTable []models.Submission

func (t submissionTable) String() string {
	if len(t) == 0 {
		return "No submissions found"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tRECEIVED\tNAME\tCONTACT")
	for _, sub := range t {
		contact := sub.Data["email"]
		if contact == "" {
			contact = sub.Data["phone"]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sub.ID, sub.Type, sub.Status, received(sub), sub.Data["name"], contact)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

type submissionView models.Submission

func (v submissionView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s  %s", v.ID, v.Type, v.Status, received(models.Submission(v)))
	keys := make([]string, 0, len(v.Data))
	for k := range v.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, v.Data[k])
	}
	return b.String()
}

type statsView models.Stats

func (s statsView) String() string {
	return fmt.Sprintf("total %d (new %d, viewed %d, responded %d)\norders %d, contacts %d, consultations %d",
		s.Total, s.New, s.Viewed, s.Responded, s.Orders, s.Contacts, s.Consultations)
}

// message is a one-line text result that still encodes as an object.
type message struct {
	Text   string                 `json:"message"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

func (m message) String() string { return m.Text }

func received(sub models.Submission) string {
	return time.UnixMilli(sub.Timestamp).UTC().Format("2006-01-02 15:04")
}
