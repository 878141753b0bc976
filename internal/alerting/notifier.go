package alerting

import (
	"context"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/rs/zerolog/log"
)

// Sender delivers one message to one channel URL.
type Sender interface {
	Send(channelURL, message string) error
}

// ShoutrrrSender routes messages through shoutrrr service URLs
// (discord://..., slack://..., smtp://..., generic webhooks).
type ShoutrrrSender struct{}

func (ShoutrrrSender) Send(channelURL, message string) error {
	return shoutrrr.Send(channelURL, message)
}

// Notifier fans an alert out to every channel configured on the rule.
// Delivery is best-effort per channel: one channel failing is logged and
// recorded, and never blocks the remaining channels.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	if sender == nil {
		sender = ShoutrrrSender{}
	}
	return &Notifier{sender: sender}
}

// Notify sends the alert to each channel and returns per-channel outcomes.
func (n *Notifier) Notify(ctx context.Context, rule *AlertRule, rec *AlertRecord) []ChannelResult {
	message := fmt.Sprintf("[%s] %s: %s = %g, breaching %s %g",
		rule.Severity, rule.Name, rule.Metric, rec.Value, rule.Op, rec.Threshold)

	results := make([]ChannelResult, 0, len(rule.Channels))
	for _, ch := range rule.Channels {
		select {
		case <-ctx.Done():
			results = append(results, ChannelResult{Channel: ch, Err: ctx.Err()})
			continue
		default:
		}
		err := n.sender.Send(ch, message)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Str("channel", ch).Msg("notification delivery failed")
		} else {
			log.Info().Str("rule", rule.Name).Str("channel", ch).Msg("notification delivered")
		}
		results = append(results, ChannelResult{Channel: ch, Err: err})
	}
	return results
}
