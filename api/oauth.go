package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/inconshreveable/log15/v3"
	"github.com/slack-go/slack"

	"MoodLab/db"
	"MoodLab/internal/telemetry"
)

// CodeExchanger trades an OAuth authorization code for an access token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*slack.OAuthV2Response, error)
}

// OAuthHandler serves the app installation flow.
type OAuthHandler struct {
	clientID     string
	clientSecret string
	redirectURI  string
	exchanger    CodeExchanger
	repo         *db.Repository
	observer     telemetry.Observer
	logger       log15.Logger
}

func NewOAuthHandler(clientID, clientSecret, redirectURI string, exchanger CodeExchanger,
	repo *db.Repository, observer telemetry.Observer, logger log15.Logger) *OAuthHandler {
	if observer == nil {
		observer = telemetry.Nop()
	}
	return &OAuthHandler{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		exchanger:    exchanger,
		repo:         repo,
		observer:     observer,
		logger:       logger.New("module", "oauth"),
	}
}

// AuthorizeURL is where new installations are sent.
func (h *OAuthHandler) AuthorizeURL() string {
	q := url.Values{
		"client_id":  {h.clientID},
		"scope":      {slackOAuthAuthorizeScope},
		"user_scope": {""},
	}
	if h.redirectURI != "" {
		q.Set("redirect_uri", h.redirectURI)
	}
	return slackOAuthAuthorizeURL + "?" + q.Encode()
}

func (h *OAuthHandler) HandleSlackInstall(w http.ResponseWriter, r *http.Request) {
	if h.clientID == "" {
		h.logger.Error("SLACK_CLIENT_ID is not configured")
		http.Error(w, "Slack Client ID not configured", http.StatusInternalServerError)
		return
	}

	h.logger.Info("New app installation request")
	http.Redirect(w, r, h.AuthorizeURL(), http.StatusFound)
}

func (h *OAuthHandler) HandleSlackOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Error("Missing authorization code in request")
		h.observer.RecordEvent(categoryAuth, "[auth] Unexpected missing query or code in auth request", telemetry.LevelError)
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	oauthResp, err := h.exchanger.ExchangeCode(r.Context(), h.clientID, h.clientSecret, code, h.redirectURI)
	if err != nil {
		h.logger.Error("Failed to get access token", "err", err)
		h.observer.RecordEvent(categoryAuth, "[auth] Failed to get access token", telemetry.LevelError)
		http.Error(w, "OAuth request failed", http.StatusBadGateway)
		return
	}

	teamID, userID := oauthResp.Team.ID, oauthResp.AuthedUser.ID
	if err := h.repo.SaveBotToken(r.Context(), teamID, userID, oauthResp.AccessToken); err != nil {
		h.logger.Error("Failed to save bot token", "team", teamID, "err", err)
		h.observer.RecordEvent(categoryAuth, "[auth] Failed to save auth token for "+teamID, telemetry.LevelError)
		http.Error(w, "Failed to save team installation", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Saved auth token", "team", teamID, "authed_by", userID)
	h.observer.RecordEvent(categoryAuth,
		fmt.Sprintf("[auth] Saving auth token for %s. Authenticated by %s", teamID, userID), telemetry.LevelInfo)

	target := fmt.Sprintf("slack://user?team=%s&id=%s", url.QueryEscape(teamID), url.QueryEscape(oauthResp.BotUserID))
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}
