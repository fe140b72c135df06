package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Should unwrap the cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := New(http.StatusInternalServerError, "Failed to send email", cause).WithDetails(cause.Error())

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "Failed to send email: dial tcp: connection refused", err.Error())
		assert.Equal(t, "dial tcp: connection refused", err.Details)
	})

	t.Run("Should find the AppError through wrapping", func(t *testing.T) {
		wrapped := errors.Join(errors.New("outer"), BadRequest("All fields are required."))

		var appErr *AppError
		assert.True(t, errors.As(wrapped, &appErr))
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		assert.Equal(t, "All fields are required.", appErr.Error())
	})
}
