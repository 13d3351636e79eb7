package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: order 7", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: bad quantity", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: product X", service.ErrInsufficientStock), http.StatusConflict},
		{fmt.Errorf("%w: order OS1", service.ErrAlreadyPaid), http.StatusConflict},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: provider down", service.ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("something unexpected"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)

		respondServiceError(c, tc.err)
		assert.Equal(t, tc.status, rec.Code, "error %v", tc.err)

		var body envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.NotEmpty(t, body.Error)
	}
}
