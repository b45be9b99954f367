// internal/workers/submissions/send-submission-alert/templates.go
package sendsubmissionalert

import (
	"strings"
	"time"

	"swedana-forms/internal/models"
)

var emailTemplates = map[models.SubmissionType]models.NotificationTemplate{
	models.SubmissionTypeOrder: {
		Subject: "New order inquiry from {{name}}",
		Body: "{{name}} asked about ordering {{product}} (quantity {{quantity}}).\n\n" +
			"Email: {{email}}\nPhone: {{phone}}\n\n{{message}}\n\n" +
			"Received {{date}} as submission {{id}}.",
	},
	models.SubmissionTypeContact: {
		Subject: "New message from {{name}}",
		Body: "{{name}} wrote:\n\n{{message}}\n\n" +
			"Email: {{email}}\nPhone: {{phone}}\n\n" +
			"Received {{date}} as submission {{id}}.",
	},
	models.SubmissionTypeConsultation: {
		Subject: "Consultation request from {{name}}",
		Body: "{{name}} would like to discuss {{interest}}.\n\n{{message}}\n\n" +
			"Email: {{email}}\nPhone: {{phone}}\n\n" +
			"Received {{date}} as submission {{id}}.",
	},
}

const smsTemplate = "Swedana: new {{type}} from {{name}}, submission {{id}}"

func templateData(sub models.Submission) map[string]string {
	data := make(map[string]string, len(sub.Data)+3)
	for k, v := range sub.Data {
		data[k] = v
	}
	data["id"] = sub.ID
	data["type"] = string(sub.Type)
	data["date"] = time.UnixMilli(sub.Timestamp).UTC().Format("2006-01-02 15:04 MST")
	return data
}

// renderTemplate substitutes {{key}} placeholders and drops the ones
// without a value.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
