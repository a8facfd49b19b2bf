package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "msg"))
	assert.Nil(t, Wrapf(nil, "format %s", "x"))

	base := errors.New("base")
	wrapped := Wrapf(base, "load %s", "a.pdf")
	assert.EqualError(t, wrapped, "load a.pdf: base")
	assert.True(t, Is(wrapped, base))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		nil:                                    http.StatusOK,
		Wrap(ErrNotFound, "document"):          http.StatusNotFound,
		fmt.Errorf("q: %w", ErrInvalidArgument): http.StatusBadRequest,
		Wrap(ErrUnavailable, "tavily"):         http.StatusServiceUnavailable,
		errors.New("boom"):                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), "%v", err)
	}
}
