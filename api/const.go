package api

const (
	slackOAuthAuthorizeURL   = "https://slack.com/oauth/v2/authorize"
	slackOAuthAuthorizeScope = "chat:write,commands,im:write,team:read,users:read,users:read.email,im:read"
	slackOAuthAccessMethod   = "oauth.v2.access"
	slackPostMessageMethod   = "chat.postMessage"

	commandHelp      = "help"
	commandSetup     = "setup"
	commandStatus    = "status"
	commandAnalytics = "analytics"

	categoryRequest = "slack-request"
	categoryWebhook = "slack-webhook"
	categoryAuth    = "auth"

	unauthorizedBody = "Unauthorized"
	maxRequestBody   = 1 << 20
)
