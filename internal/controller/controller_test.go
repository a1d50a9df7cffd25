package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docc-lab/pythia/internal/model"
)

func TestIsEnabledGlobalAdditive(t *testing.T) {
	assert := assert.New(t)
	c := New(nil)
	tp := model.Intern("tp.global")

	assert.False(c.IsEnabled(tp, nil))
	assert.NoError(c.Enable(context.Background(), []Key{{Tracepoint: tp}}))

	rt := "checkout"
	assert.True(c.IsEnabled(tp, nil))
	assert.True(c.IsEnabled(tp, &rt), "global enable must be additive with request-type-specific checks")
}

func TestEnableDisableRoundTrip(t *testing.T) {
	assert := assert.New(t)
	c := New(nil)
	tp := model.Intern("tp.scoped")
	rt := "checkout"

	assert.NoError(c.Enable(context.Background(), []Key{{Tracepoint: tp, RequestType: &rt}}))
	assert.True(c.IsEnabled(tp, &rt))

	assert.NoError(c.Disable(context.Background(), []Key{{Tracepoint: tp, RequestType: &rt}}))
	assert.False(c.IsEnabled(tp, &rt))
}

func TestBroadcastRetriesThenSucceeds(t *testing.T) {
	assert := assert.New(t)
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New([]string{srv.URL})
	tp := model.Intern("tp.retry")
	err := c.Enable(context.Background(), []Key{{Tracepoint: tp}})
	assert.NoError(err)
	assert.GreaterOrEqual(attempts, 2)
}

func TestDisableAllClearsEnabledSet(t *testing.T) {
	assert := assert.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New([]string{srv.URL})
	tp := model.Intern("tp.all")
	assert.NoError(c.Enable(context.Background(), []Key{{Tracepoint: tp}}))
	assert.True(c.IsEnabled(tp, nil))

	assert.NoError(c.DisableAll(context.Background()))
	assert.False(c.IsEnabled(tp, nil))
}
