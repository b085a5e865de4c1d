package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workoutbot/internal/channel"
	"workoutbot/internal/deliverylog"
	"workoutbot/internal/dispatcher"
	logx "workoutbot/pkg/logx"
)

// sendPlanJob returns the "send today's plan" action bound to one channel.
// The day and body are computed fresh at fire time, never pre-computed.
func (a *App) sendPlanJob(ad channel.Adapter) dispatcher.Job {
	return func(ctx context.Context) error {
		return a.sendPlan(ctx, ad)
	}
}

func (a *App) sendPlan(ctx context.Context, ad channel.Adapter) error {
	day := a.clock.Now().Weekday().String()
	body := a.catalog.FormatMessage(day) + a.usefulLinks()
	subject := fmt.Sprintf("🏋️ %s Workout Plan", day)

	err := ad.Send(ctx, channel.Message{Subject: subject, Body: body})
	a.recordOutcome(ad.Kind(), day, err)
	return err
}

// recordOutcome appends exactly one attempt per send, success or failure.
func (a *App) recordOutcome(kind channel.Kind, day string, err error) {
	attempt := deliverylog.Attempt{
		At:      a.clock.Now(),
		Channel: string(kind),
	}
	if err == nil {
		attempt.Level = deliverylog.LevelInfo
		switch kind {
		case channel.KindEmail:
			attempt.Message = fmt.Sprintf("Email sent successfully for %s to %s", day, a.cfg.Email.To)
		default:
			attempt.Message = fmt.Sprintf("Telegram message sent successfully for %s", day)
		}
	} else {
		attempt.Level = deliverylog.LevelError
		switch kind {
		case channel.KindEmail:
			attempt.Message = fmt.Sprintf("Failed to send email for %s: %v", day, err)
		default:
			// Keep the undelivered body in the record for postmortem.
			msg := fmt.Sprintf("Failed to send Telegram message for %s: %v", day, err)
			var se *channel.SendError
			if errors.As(err, &se) && se.Body != "" {
				msg += "\nMessage body:\n" + se.Body
			}
			attempt.Message = msg
		}
	}
	a.appendAttempt(attempt)
}

// weeklyReport emails the full delivery log contents as they are at call time.
func (a *App) weeklyReport(ctx context.Context) error {
	content, err := a.dlog.ReadAll()
	if err != nil {
		a.appendAttempt(deliverylog.Attempt{
			At:      a.clock.Now(),
			Level:   deliverylog.LevelError,
			Channel: string(channel.KindEmail),
			Message: fmt.Sprintf("Failed to send weekly log report: %v", err),
		})
		return err
	}

	err = a.mail.Send(ctx, channel.Message{
		Subject: "📅 Weekly Notification Log Report",
		Body:    content,
	})
	if err != nil {
		a.appendAttempt(deliverylog.Attempt{
			At:      a.clock.Now(),
			Level:   deliverylog.LevelError,
			Channel: string(channel.KindEmail),
			Message: fmt.Sprintf("Failed to send weekly log report: %v", err),
		})
		return err
	}
	a.appendAttempt(deliverylog.Attempt{
		At:      a.clock.Now(),
		Level:   deliverylog.LevelInfo,
		Channel: string(channel.KindEmail),
		Message: "Weekly log report sent via email",
	})
	return nil
}

// SendToday runs the plan send for both channels synchronously. Per-channel
// failures are recorded in the delivery log and swallowed here; the manual
// trigger endpoint reports success regardless.
func (a *App) SendToday(ctx context.Context) {
	_ = a.sendPlan(ctx, a.chat)
	_ = a.sendPlan(ctx, a.mail)
}

func (a *App) appendAttempt(attempt deliverylog.Attempt) {
	if err := a.dlog.Append(attempt); err != nil {
		a.log.Error("delivery log append failed",
			logx.String("channel", attempt.Channel),
			logx.Err(err))
	}
}

func (a *App) usefulLinks() string {
	base := strings.TrimRight(strings.TrimSpace(a.cfg.HTTP.BaseURL), "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf(
		"\n\n🔗 Useful Links:\n📬 Send Workout Manually: %s/send-today-workout\n📄 View Logs: %s/logs",
		base, base,
	)
}
