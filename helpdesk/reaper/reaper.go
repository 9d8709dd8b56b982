// Package reaper clears stale chat-to-ticket bindings so users do not keep
// receiving live thread forwards for conversations they abandoned.
package reaper

import (
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"log/slog"

	"helpdeskbot/core/logger"
	"helpdeskbot/helpdesk/session"
)

const (
	// inactivityThreshold is how long a bound chat may stay silent before
	// the binding is reaped.
	inactivityThreshold = 6 * time.Hour

	sweepSchedule = "@every 1h"
)

// Sender delivers the reset notification. Satisfied by the bot transport.
type Sender interface {
	SendText(chatID, text string, formatted bool) error
}

// Reaper periodically sweeps the session store for inactive ticket bindings.
type Reaper struct {
	sessions session.Manager
	sender   Sender
	cron     *cron.Cron
	now      func() time.Time
}

// New builds a Reaper. The sweep does not run until Start is called.
func New(sessions session.Manager, sender Sender) *Reaper {
	return &Reaper{
		sessions: sessions,
		sender:   sender,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start schedules the hourly sweep. The returned error is only non-nil when
// the schedule expression itself is invalid.
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(sweepSchedule, r.Sweep); err != nil {
		return err
	}
	r.cron.Start()
	logger.REAPER.Info("reaper started",
		slog.String("event", "reaper.start"),
		slog.String("status", "ok"),
	)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
}

// Sweep scans every session once and unbinds those whose last activity is
// older than the inactivity threshold. Each reaped chat gets exactly one
// reset notification; the cleared binding makes the session ineligible on
// subsequent sweeps. An empty session store is a no-op.
func (r *Reaper) Sweep() {
	now := r.now()
	var scanned, reset int

	r.sessions.Range(func(s session.Session) {
		scanned++
		if s.ActiveTicketID == 0 {
			return
		}
		if now.Sub(s.LastActivityAt) < inactivityThreshold {
			return
		}

		r.sessions.SetActiveTicket(s.ChatID, 0)
		if s.State == session.StateChattingOnTicket {
			r.sessions.SetState(s.ChatID, session.StateIdle)
		}
		reset++

		chat := strconv.FormatInt(s.ChatID, 10)
		if err := r.sender.SendText(chat, "Сессия неактивна более 6 часов и была сброшена. Чтобы продолжить переписку, выберите заявку заново: /tickets", false); err != nil {
			logger.REAPER.Warn("reset notification failed",
				slog.String("event", "reaper.notify"),
				slog.String("status", "fail"),
				slog.Int64("chat_id", s.ChatID),
				slog.String("err", err.Error()),
			)
		}
	})

	if reset > 0 {
		logger.REAPER.Info("sweep finished",
			slog.String("event", "reaper.sweep"),
			slog.String("status", "ok"),
			slog.Int("sessions", scanned),
			slog.Int("reset", reset),
		)
	} else {
		logger.REAPER.Debug("sweep finished",
			slog.String("event", "reaper.sweep"),
			slog.String("status", "ok"),
			slog.Int("sessions", scanned),
		)
	}
}
