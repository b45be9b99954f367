package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	commonerrors "swedana-forms/internal/common/errors"
	"swedana-forms/internal/formstore"
	"swedana-forms/internal/models"
)

const followUpTimeout = 30 * time.Second

type createRequest struct {
	Type     string          `json:"type"`
	Interest string          `json:"interest"`
	Data     models.FormData `json:"data"`
}

// createSubmission is the public producer behind every site form.
func (r *Router) createSubmission(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)

	var body createRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondStandardError(w, commonerrors.NewParseError(err))
		return
	}

	t, stdErr := resolveType(body)
	if stdErr != nil {
		respondStandardError(w, stdErr)
		return
	}

	if r.opts.Validator != nil {
		if err := r.opts.Validator.Validate(t, body.Data.Values); err != nil {
			respondStandardError(w, commonerrors.Normalize(err))
			return
		}
	}

	sub, err := r.opts.Store.CreateWithOrder(req.Context(), t, body.Data.Values, body.Data.Keys)
	if err != nil {
		stdErr := formstore.ToStandardError(err)
		r.logger.Error("submission not persisted", map[string]interface{}{
			"submissionId": sub.ID,
			"type":         string(t),
			"errorCode":    string(stdErr.Code),
		})
		respondStandardError(w, stdErr)
		return
	}

	r.followUp(req.Context(), sub)
	respondJSON(w, http.StatusCreated, sub)
}

func resolveType(body createRequest) (models.SubmissionType, *commonerrors.StandardError) {
	if body.Type != "" {
		t, err := models.ParseSubmissionType(body.Type)
		if err != nil {
			return "", commonerrors.NewInvalidSubmissionTypeError(body.Type)
		}
		return t, nil
	}
	interest := body.Interest
	if interest == "" {
		interest = body.Data.Get("interest")
	}
	return models.TypeFromInterest(interest), nil
}

// followUp runs alerting and workflow start after the response is decided,
// detached from the request's cancellation.
func (r *Router) followUp(ctx context.Context, sub models.Submission) {
	if r.opts.Notifier == nil && (r.opts.Workflow == nil || r.opts.ProcessID == "") {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, followUpTimeout)
		defer cancel()

		if r.opts.Notifier != nil {
			r.opts.Notifier.Notify(ctx, sub)
		}
		if r.opts.Workflow != nil && r.opts.ProcessID != "" {
			key, err := r.opts.Workflow.StartSubmissionProcess(ctx, r.opts.ProcessID, sub)
			if err != nil {
				r.logger.Error("failed to start submission process", map[string]interface{}{
					"submissionId": sub.ID,
					"processId":    r.opts.ProcessID,
					"error":        err,
				})
				return
			}
			r.logger.Info("submission process started", map[string]interface{}{
				"submissionId":       sub.ID,
				"processInstanceKey": key,
			})
		}
	}()
}
