package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoodLab/db"
	"MoodLab/internal/telemetry"
)

type stubExchanger struct {
	resp *slack.OAuthV2Response
	err  error
	code string
}

func (s *stubExchanger) ExchangeCode(_ context.Context, _, _, code, _ string) (*slack.OAuthV2Response, error) {
	s.code = code
	return s.resp, s.err
}

func newOAuth(t *testing.T, exchanger CodeExchanger, store db.Store) *OAuthHandler {
	t.Helper()
	return NewOAuthHandler("cid", "secret", "https://bot.example.com/callback", exchanger,
		db.NewRepository(store, nil), telemetry.Nop(), telemetry.Discard())
}

func TestHandleSlackInstall(t *testing.T) {
	h := newOAuth(t, &stubExchanger{}, db.NewMemoryStore())
	rec := httptest.NewRecorder()
	h.HandleSlackInstall(rec, httptest.NewRequest(http.MethodGet, "/redirect", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "slack.com", loc.Host)
	assert.Equal(t, "/oauth/v2/authorize", loc.Path)
	assert.Equal(t, "cid", loc.Query().Get("client_id"))
	assert.Equal(t, slackOAuthAuthorizeScope, loc.Query().Get("scope"))
	assert.Equal(t, "https://bot.example.com/callback", loc.Query().Get("redirect_uri"))
}

func TestHandleSlackInstallWithoutClientID(t *testing.T) {
	h := NewOAuthHandler("", "", "", &stubExchanger{}, db.NewRepository(db.NewMemoryStore(), nil), nil, telemetry.Discard())
	rec := httptest.NewRecorder()
	h.HandleSlackInstall(rec, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOAuthCallbackSavesToken(t *testing.T) {
	store := db.NewMemoryStore()
	exchanger := &stubExchanger{resp: &slack.OAuthV2Response{
		AccessToken: "xoxb-new",
		BotUserID:   "UBOT",
		Team:        slack.OAuthV2ResponseTeam{ID: "T1", Name: "Acme"},
		AuthedUser:  slack.OAuthV2ResponseAuthedUser{ID: "U1"},
	}}
	h := newOAuth(t, exchanger, store)

	rec := httptest.NewRecorder()
	h.HandleSlackOAuthCallback(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

	assert.Equal(t, "abc", exchanger.code)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "slack://user?team=T1&id=UBOT", rec.Header().Get("Location"))

	raw, err := store.Get(context.Background(), "token_T1")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-new", string(raw))
	assert.Equal(t, map[string]string{"team_id": "T1", "user_id": "U1"}, store.Metadata("token_T1"))
}

func TestOAuthCallbackFailures(t *testing.T) {
	t.Run("missing code", func(t *testing.T) {
		store := db.NewMemoryStore()
		rec := httptest.NewRecorder()
		newOAuth(t, &stubExchanger{}, store).
			HandleSlackOAuthCallback(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exchange fails", func(t *testing.T) {
		store := db.NewMemoryStore()
		rec := httptest.NewRecorder()
		newOAuth(t, &stubExchanger{err: errors.New("invalid_code")}, store).
			HandleSlackOAuthCallback(rec, httptest.NewRequest(http.MethodGet, "/callback?code=x", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		keys, err := store.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("store fails", func(t *testing.T) {
		exchanger := &stubExchanger{resp: &slack.OAuthV2Response{
			AccessToken: "xoxb-new",
			Team:        slack.OAuthV2ResponseTeam{ID: "T1"},
		}}
		rec := httptest.NewRecorder()
		newOAuth(t, exchanger, failingStore{db.NewMemoryStore()}).
			HandleSlackOAuthCallback(rec, httptest.NewRequest(http.MethodGet, "/callback?code=x", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
