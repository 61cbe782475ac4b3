package app

import (
	"auctions/pkg/httperror"
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest runs struct validation and maps failures to a 400 with the
// given code prefix, e.g. "listing.create" -> "listing.create.validation_failed".
func validateRequest(req any, prefix string) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return httperror.BadRequest(
				prefix+".validation_failed",
				"Validation failed for the request",
				ve.Error(),
			)
		}

		return httperror.InternalServerError(
			prefix+".validation_error",
			"An unexpected validation error occurred",
			nil,
		)
	}

	return nil
}
