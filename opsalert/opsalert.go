package opsalert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/slack-go/slack"
)

// Notifier delivers operator alerts to a Slack channel via an incoming
// webhook. It is constructed explicitly and passed to whoever needs it;
// with no webhook URL configured alerts degrade to log lines.
type Notifier struct {
	webhookURL  string
	environment string
	appName     string
	logsURL     string
}

func NewNotifier(webhookURL, environment, appName, logsURL string) *Notifier {
	return &Notifier{
		webhookURL:  webhookURL,
		environment: environment,
		appName:     appName,
		logsURL:     logsURL,
	}
}

// Alert posts a titled alert with context and detail to the ops channel.
// Delivery is asynchronous and best-effort; failures are logged only.
func (n *Notifier) Alert(title, alertContext, detail string) {
	if n.webhookURL == "" {
		log.Printf("⚠️ Ops alerting disabled, alert only logged: %s - %s: %s", title, alertContext, detail)
		return
	}
	go n.post(title, alertContext, detail)
}

// TokenRefreshExhausted reports a token refresh job that ran out of retries.
// These require operator intervention; nothing auto-recovers them.
func (n *Notifier) TokenRefreshExhausted(accountID, errorMessage string) {
	n.Alert(
		"Token refresh exhausted",
		fmt.Sprintf("account %s", accountID),
		fmt.Sprintf("all retries spent, last error: %s", errorMessage),
	)
}

// ConnectionDown reports a monitored channel losing connectivity.
func (n *Notifier) ConnectionDown(channel, errorMessage string) {
	n.Alert(
		"Connection down",
		fmt.Sprintf("channel %s", channel),
		errorMessage,
	)
}

func (n *Notifier) post(title, alertContext, detail string) {
	envPrefix := ""
	if n.environment == "dev" {
		envPrefix = "[dev] "
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(
			slack.PlainTextType,
			fmt.Sprintf("🚨 %s%s: %s", envPrefix, n.appName, title),
			true, false,
		)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Service:* %s", n.appName), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Environment:* %s", n.environment), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Context:* %s", alertContext), false, false),
		}, nil),
		slack.NewSectionBlock(slack.NewTextBlockObject(
			slack.MarkdownType,
			fmt.Sprintf("*Detail:*\n```%s```", detail),
			false, false,
		), nil, nil),
	}
	if n.logsURL != "" {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject(
			slack.MarkdownType,
			fmt.Sprintf("🔗 <%s|View Logs>", n.logsURL),
			false, false,
		), nil, nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := &slack.WebhookMessage{Blocks: &slack.Blocks{BlockSet: blocks}}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		log.Printf("❌ Failed to send ops alert: %v", err)
	}
}
