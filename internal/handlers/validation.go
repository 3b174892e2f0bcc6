package handlers

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/harishghasolia07/NLogin-Devices/pkg/errors"
	"github.com/harishghasolia07/NLogin-Devices/pkg/response"
	appValidator "github.com/harishghasolia07/NLogin-Devices/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and applies struct
// validation rules, writing a 400 response on failure.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}
		return ve.Error()
	}

	return "invalid request payload"
}
