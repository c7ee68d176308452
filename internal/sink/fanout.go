// Package sink implements the notification channels: a multi-channel
// fan-out sink (email, Slack, Teams, Telegram) selected per pattern by
// notification_rules, and a separate syslog sink. Both satisfy
// queue.Sink, importing queue only for the Job type, so sink depends
// on queue and never the reverse.
package sink

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/securityopsai/logwatcher/internal/config"
	"github.com/securityopsai/logwatcher/internal/queue"
)

// ChannelSender delivers a rendered message over one channel.
type ChannelSender interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// FanoutSink dispatches an admitted match's message to every channel
// enabled for that pattern in notification_rules. Delivery succeeds
// only if every attempted channel succeeds; a failing channel is
// logged and does not stop its siblings from being attempted.
type FanoutSink struct {
	rules    map[string][]string
	channels map[string]ChannelSender
	logger   *log.Logger
}

// NewFanoutSink builds the channel senders enabled in cfg and binds
// them to rules (pattern name -> channel names).
func NewFanoutSink(cfg config.Notifications, rules map[string][]string, logger *log.Logger) *FanoutSink {
	channels := make(map[string]ChannelSender)

	if cfg.Email.Enabled {
		channels["email"] = NewEmailSender(cfg.Email)
	}
	if cfg.Slack.Enabled {
		channels["slack"] = NewWebhookSender("slack", cfg.Slack.WebhookURL, slackPayload)
	}
	if cfg.Teams.Enabled {
		channels["teams"] = NewWebhookSender("teams", cfg.Teams.WebhookURL, teamsPayload)
	}
	if cfg.Telegram.Enabled {
		channels["telegram"] = NewTelegramSender(cfg.Telegram)
	}

	return &FanoutSink{rules: rules, channels: channels, logger: logger}
}

func (s *FanoutSink) Name() string { return "fanout" }

// Deliver sends job.Message to every channel notification_rules names
// for job.PatternName that is also enabled in configuration. A
// pattern with no rule, or naming only disabled channels, is a no-op
// success: there is nothing to fail.
func (s *FanoutSink) Deliver(ctx context.Context, job *queue.Job) error {
	names := s.rules[job.PatternName]
	if len(names) == 0 {
		return nil
	}

	var firstErr error
	attempted := 0
	for _, name := range names {
		ch, ok := s.channels[name]
		if !ok {
			continue // channel not enabled in configuration
		}
		attempted++
		if err := ch.Send(ctx, job.Message); err != nil {
			if s.logger != nil {
				s.logger.Printf("channel %s delivery failed: %v", name, err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("channel %s: %w", name, err)
			}
			continue
		}
	}
	if attempted == 0 {
		return nil
	}
	return firstErr
}

// httpClient is shared by the webhook and Telegram senders.
var httpClient = &http.Client{}
