package notify

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// SlackNotifier posts events to a Slack incoming webhook as attachments.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	Username   string
	Client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	n := &SlackNotifier{
		WebhookURL: webhookURL,
		Username:   userAgent,
		Client:     defaultClient(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SlackOption configures SlackNotifier.
type SlackOption func(*SlackNotifier)

// WithSlackChannel overrides the webhook's default channel.
func WithSlackChannel(channel string) SlackOption {
	return func(n *SlackNotifier) { n.Channel = channel }
}

// WithSlackUsername sets the bot username.
func WithSlackUsername(username string) SlackOption {
	return func(n *SlackNotifier) { n.Username = username }
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, event Event) error {
	payload := slackPayload{
		Username: n.Username,
		Channel:  n.Channel,
		Attachments: []slackAttachment{{
			Color:     slackColor(event.Severity),
			Title:     slackEmoji(event.Type) + " " + eventTitle(event.Type),
			Text:      event.Message,
			Footer:    slackFooter(event),
			Timestamp: event.Timestamp.Unix(),
			Fields:    slackFields(event.Metadata),
		}},
	}
	return postJSON(ctx, n.Client, "slack", n.WebhookURL, payload, nil)
}

var slackEmojis = map[EventType]string{
	EventAccountAdded:     ":heavy_plus_sign:",
	EventProjectCreated:   ":heavy_plus_sign:",
	EventRepoCreated:      ":heavy_plus_sign:",
	EventAccountRemoved:   ":heavy_minus_sign:",
	EventRepoSwitched:     ":twisted_rightwards_arrows:",
	EventOwnerMapped:      ":twisted_rightwards_arrows:",
	EventAccountUpdated:   ":pencil2:",
	EventKeyGenerated:     ":key:",
	EventFixApplied:       ":wrench:",
	EventBackupCreated:    ":floppy_disk:",
	EventBackupRestored:   ":rewind:",
	EventConfigReset:      ":rotating_light:",
	EventValidationFailed: ":warning:",
}

func slackEmoji(t EventType) string {
	if e, ok := slackEmojis[t]; ok {
		return e
	}
	return ":bell:"
}

// eventTitle turns "github_repo_created" into "Github repo created".
func eventTitle(t EventType) string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return "event"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func slackColor(severity string) string {
	switch severity {
	case SeverityError:
		return "danger"
	case SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}

func slackFooter(event Event) string {
	var parts []string
	if event.Account != "" {
		parts = append(parts, "Account: "+event.Account)
	}
	if event.Repo != "" {
		parts = append(parts, "Repo: "+event.Repo)
	}
	return strings.Join(parts, " | ")
}

// slackFields renders metadata sorted by key so messages are stable.
func slackFields(metadata map[string]any) []slackField {
	if len(metadata) == 0 {
		return nil
	}

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]slackField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, slackField{Title: k, Value: fmt.Sprint(metadata[k]), Short: true})
	}
	return fields
}

type slackPayload struct {
	Username    string            `json:"username,omitempty"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
	Fields    []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
