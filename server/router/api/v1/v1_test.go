package v1

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduloop/eduloop/plugin/ai/agent"
)

func TestHTTPErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session not found", agent.ErrSessionNotFound, http.StatusNotFound},
		{"invalid argument", agent.ErrInvalidArgument, http.StatusBadRequest},
		{"invalid transition", agent.ErrInvalidTransition, http.StatusConflict},
		{"content unavailable", agent.ErrContentUnavailable, http.StatusUnprocessableEntity},
		{"job timeout", agent.ErrJobTimeout, http.StatusGatewayTimeout},
		{"wrapped sentinel", errors.Wrap(agent.ErrSessionNotFound, "session abc"), http.StatusNotFound},
		{"transient upstream", agent.ErrNetworkError, http.StatusBadGateway},
		{"unknown", errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := &echo.HTTPError{}
			require.ErrorAs(t, httpError(tt.err), &httpErr)
			assert.Equal(t, tt.want, httpErr.Code)
		})
	}
}
