// Package app wires the daemon together: config, logging, catalog, delivery
// log, channel adapters, dispatcher and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"workoutbot/internal/catalog"
	"workoutbot/internal/channel"
	"workoutbot/internal/channel/email"
	"workoutbot/internal/channel/telegram"
	"workoutbot/internal/config"
	"workoutbot/internal/deliverylog"
	"workoutbot/internal/dispatcher"
	"workoutbot/internal/httpapi"
	logx "workoutbot/pkg/logx"
)

// The trigger set is fixed for the process lifetime; only cadences are
// configurable.
const (
	TriggerChatMorning  = "chat_morning"
	TriggerChatEvening  = "chat_evening"
	TriggerEmailMorning = "email_morning"
	TriggerEmailEvening = "email_evening"
	TriggerWeeklyReport = "weekly_report"
)

type App struct {
	cfgMgr *config.Manager
	cfg    *config.Config

	logSvc *logx.Service
	log    logx.Logger

	catalog *catalog.Catalog
	dlog    deliverylog.Log
	chat    channel.Adapter
	mail    channel.Adapter
	disp    *dispatcher.Dispatcher
	httpd   *httpapi.Server
	clock   dispatcher.Clock

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

// New loads config and constructs every component. Catalog problems are fatal
// here; channel credential problems are not (they surface at first send).
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	dlog, err := deliverylog.Open(deliverylog.Config{
		Driver: cfg.DeliveryLog.Driver,
		Path:   cfg.DeliveryLog.Path,
	}, log.With(logx.String("comp", "deliverylog")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open delivery log: %w", err)
	}

	creds := config.CredentialsFromEnv()
	chat := telegram.New(telegram.Config{
		Token:  creds.TelegramToken,
		ChatID: cfg.Telegram.ChatID,
	}, log.With(logx.String("comp", "telegram")))
	mail := email.New(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: creds.SMTPUsername,
		Password: creds.SMTPPassword,
		From:     cfg.Email.From,
		To:       cfg.Email.To,
	}, log.With(logx.String("comp", "email")))

	disp := dispatcher.New(dispatcher.Config{
		Workers:     cfg.Dispatcher.Workers,
		QueueSize:   cfg.Dispatcher.QueueSize,
		HistorySize: cfg.Dispatcher.HistorySize,
		Timezone:    cfg.Timezone,
	}, log.With(logx.String("comp", "dispatcher")))

	return &App{
		cfgMgr:  mgr,
		cfg:     cfg,
		logSvc:  logSvc,
		log:     log,
		catalog: cat,
		dlog:    dlog,
		chat:    chat,
		mail:    mail,
		disp:    disp,
		httpd:   httpapi.New(log),
		clock:   disp.Clock(),
	}, nil
}

// Start registers the trigger table, starts the clock and the HTTP surface,
// and begins watching the config file for logging changes.
func (a *App) Start(ctx context.Context) error {
	if err := a.registerTriggers(); err != nil {
		return err
	}
	a.disp.Start(ctx)

	if _, err := a.httpd.Start(httpapi.Config{Addr: a.cfg.HTTP.Addr}, httpapi.Hooks{
		SendToday: a.SendToday,
		ReadLog:   a.dlog.ReadAll,
	}); err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	sub := a.cfgMgr.Subscribe(1)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgMgr.Watch(watchCtx)
	}()
	go func() {
		defer a.watchWG.Done()
		defer a.cfgMgr.Unsubscribe(sub)
		for {
			select {
			case <-watchCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok || cfg == nil {
					return
				}
				// Only runtime-tunable sections are applied; the trigger
				// table and catalog stay as loaded at startup.
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
			}
		}
	}()

	a.log.Info("started", logx.String("tz", a.disp.Location().String()))
	return nil
}

func (a *App) registerTriggers() error {
	sch := a.cfg.Schedule
	regs := []struct {
		id  string
		reg func() error
	}{
		{TriggerChatMorning, func() error {
			return a.disp.RegisterDaily(TriggerChatMorning, sch.MorningAt, a.sendPlanJob(a.chat))
		}},
		{TriggerChatEvening, func() error {
			return a.disp.RegisterDaily(TriggerChatEvening, sch.EveningAt, a.sendPlanJob(a.chat))
		}},
		{TriggerEmailMorning, func() error {
			return a.disp.RegisterDaily(TriggerEmailMorning, sch.MorningAt, a.sendPlanJob(a.mail))
		}},
		{TriggerEmailEvening, func() error {
			return a.disp.RegisterDaily(TriggerEmailEvening, sch.EveningAt, a.sendPlanJob(a.mail))
		}},
		{TriggerWeeklyReport, func() error {
			return a.disp.RegisterWeekly(TriggerWeeklyReport, time.Sunday, sch.ReportAt, a.weeklyReport)
		}},
	}
	for _, r := range regs {
		if err := r.reg(); err != nil {
			return fmt.Errorf("register %s: %w", r.id, err)
		}
	}
	return nil
}

// Stop shuts everything down. In-flight sends may be abandoned; that costs at
// most one delivery log entry.
func (a *App) Stop(ctx context.Context) error {
	a.httpd.Stop(ctx)
	a.disp.Stop(ctx)
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
		a.watchCancel = nil
	}
	if err := a.dlog.Close(); err != nil {
		a.log.Warn("delivery log close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
