package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository"
)

// notFoundOr maps ErrNotFound to a NotFoundError for entity and wraps
// anything else as a StorageError.
func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	return storageErr(err)
}

// referenceOr maps ErrNotFound on an id taken from a request body to a
// ValidationError on field.
func referenceOr(err error, field string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return model.Invalid(field, "does not exist")
	}
	return storageErr(err)
}

func storageErr(err error) error {
	var se *model.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &model.StorageError{Cause: err}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// observeDenial counts policy refusals and logs them at debug level.
func observeDenial(m Recorder, log *zap.Logger, actor model.Actor, err error) {
	var d *model.DeniedError
	if errors.As(err, &d) {
		m.Denied(d.Reason)
		log.Debug("request denied",
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("reason", string(d.Reason)))
	}
}
