package resilience

import (
	"net/http"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", eris.New("bad input"), false},
		{"transient wrapper", NewTransientError(eris.New("503"), http.StatusServiceUnavailable), true},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("503"), 503), "calling registry"), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"reset by message", eris.New("read tcp: connection reset by peer"), true},
		{"dns failure", eris.New("dial tcp: lookup geocode.example: no such host"), true},
		{"io timeout", eris.New("net/http: i/o timeout"), true},
		{"permanent 404 style", eris.New("status 404"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := eris.New("too many requests")
	te := NewTransientError(inner, http.StatusTooManyRequests)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "too many requests", te.Error())
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
}
