package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, d *Dispatcher, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	d.HandleSlackRequest(rec, req)
	return rec
}

func TestHandleSlackRequestUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := post(t, f.dispatcher, command("nope", "help", "T1"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", rec.Body.String())
}

func TestHandleSlackRequestJSON(t *testing.T) {
	f := newFixture(t)
	rec := post(t, f.dispatcher, command(testToken, "help", "T1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"response_type":"in_channel"`)
	assert.Contains(t, rec.Body.String(), "Available commands")
}

func TestHandleSlackRequestEmpty(t *testing.T) {
	f := newFixture(t)
	rec := post(t, f.dispatcher, command(testToken, "status", "T1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleSlackRequestInteraction(t *testing.T) {
	f := newFixture(t)
	rec := post(t, f.dispatcher, interaction(t, testToken,
		[]action{{ID: "feedback-4", Value: "2", Label: "🤩 Awesome"}}, nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Thank you for feedback!")
	assert.Len(t, f.keys(t), 1)
}
