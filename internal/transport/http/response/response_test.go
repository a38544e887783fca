package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"carbuy-api/internal/domain"
)

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		domain.ErrMissingField:                       http.StatusBadRequest,
		domain.ErrDuplicateEmail:                     http.StatusBadRequest,
		domain.ErrListingNotFound:                    http.StatusNotFound,
		domain.ErrInvalidToken:                       http.StatusUnauthorized,
		domain.ErrForbidden:                          http.StatusForbidden,
		fmt.Errorf("wrap: %w", domain.ErrUserNotFound): http.StatusNotFound,
		fmt.Errorf("boom"):                           http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusOf(domain.KindOf(err)), err.Error())
	}
}

func TestEnvelope(t *testing.T) {
	r := OK(nil)
	assert.Equal(t, CodeOK, r.Code)
	assert.Equal(t, struct{}{}, r.Data)

	f := Fail(CodeNotFound, "")
	assert.Equal(t, "Not Found", f.Msg)
	assert.Equal(t, "ad not found", Fail(CodeNotFound, "ad not found").Msg)
	assert.Equal(t, "x", Error("x").Error)
}
