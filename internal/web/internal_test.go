package web

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yuzeguitarist/text2qr/internal/qr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		reason string
	}{
		{qr.ErrEmptyText, http.StatusBadRequest, "empty"},
		{fmt.Errorf("%w (2000 characters)", qr.ErrTextTooLong), http.StatusBadRequest, "too_long"},
		{qr.ErrInvalidModuleSize, http.StatusBadRequest, "invalid"},
		{fmt.Errorf("%w (6760 px)", qr.ErrInvalidSize), http.StatusBadRequest, "invalid"},
		{fmt.Errorf("%w: 5000 bytes", qr.ErrEncoding), http.StatusBadRequest, "capacity"},
		{errors.Join(qr.ErrRender, errors.New("disk on fire")), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, reason := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.reason, reason, tc.err.Error())
	}
}

func TestUserMessageHidesInternalErrors(t *testing.T) {
	err := errors.Join(qr.ErrRender, errors.New("png: boom"))
	s := &Server{Encoder: qr.New()}
	assert.Equal(t, "Failed to generate QR code.", s.userMessage(err))
	s.debug = true
	assert.Contains(t, s.userMessage(err), "png: boom")
}
