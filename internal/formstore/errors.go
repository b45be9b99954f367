package formstore

import (
	"errors"

	commonerrors "swedana-forms/internal/common/errors"
)

// ToStandardError maps the store's sentinel errors onto API/BPMN codes.
func ToStandardError(err error) *commonerrors.StandardError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidType):
		e := commonerrors.NewInvalidSubmissionTypeError("")
		e.Details = err.Error()
		return e
	case errors.Is(err, ErrInvalidStatus):
		e := commonerrors.NewInvalidStatusError("")
		e.Details = err.Error()
		return e
	case errors.Is(err, ErrQuotaExceeded):
		return commonerrors.NewStorageQuotaExceededError(err)
	case errors.Is(err, ErrStorageWrite) && errors.Is(err, ErrSerialization):
		return commonerrors.NewSerializationFailedError(err)
	case errors.Is(err, ErrStorageWrite):
		return commonerrors.NewStorageWriteFailedError(err)
	case errors.Is(err, ErrStorageRead):
		return commonerrors.NewStorageReadFailedError(err)
	}
	return commonerrors.Normalize(err)
}
