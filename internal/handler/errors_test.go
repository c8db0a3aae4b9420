package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/yourusername/policy-api/internal/pkg/errors"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		errorTyp string
	}{
		{fmt.Errorf("%w: bad input", apperrors.ErrValidation), http.StatusBadRequest, "validation_error"},
		{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: duplicate", apperrors.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: timeout", apperrors.ErrStorage), http.StatusInternalServerError, "internal_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, errType := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.errorTyp, errType)
		})
	}
}
