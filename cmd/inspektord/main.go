// Package main provides inspektord, the local service daemon for the
// fiscal device inspection tool. It keeps report emails in a durable
// on-disk queue and drains the queue whenever the network allows,
// so a finished inspection is never lost to a dead uplink.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tkmserwis/inspektor/internal/archive"
	"github.com/tkmserwis/inspektor/internal/config"
	"github.com/tkmserwis/inspektor/internal/db"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/mail"
	"github.com/tkmserwis/inspektor/internal/netstatus"
	"github.com/tkmserwis/inspektor/internal/outbox"
	"github.com/tkmserwis/inspektor/internal/outbox/scheduler"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Secrets may live in a local .env next to the binary.
	_ = godotenv.Load()

	conf, err := config.Load(*configPath)
	if err != nil {
		logging.Error("Failed to load configuration", err)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.LogLevel(conf.LogLevel))
	logging.Info("Starting inspektord", map[string]interface{}{
		"dataDir":  conf.DataDir,
		"provider": conf.Mail.Provider,
		"listen":   conf.Admin.Listen,
	})

	database, err := db.Open(conf.DataDir)
	if err != nil {
		logging.Error("Failed to open database", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		logging.Error("Failed to run migrations", err)
		os.Exit(1)
	}

	store := db.NewStore(database)
	defer store.Close()

	sender := buildSender(conf)

	ob := outbox.New(store, sender, conf.Mail.RatePerSecond)

	hub := newWSHub()
	ob.SetEventHandler(hub.HandleEvent)

	monitor := netstatus.New(conf.Probe.URL, conf.ProbeInterval())

	sched := scheduler.New(ob, monitor)

	arch := archive.New(store)
	reminder := archive.NewReminderScanner(arch, ob, conf.Mail.OfficeEmail)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	sched.Start(ctx)

	go runReminderLoop(ctx, reminder)

	srv := &http.Server{
		Addr:    conf.Admin.Listen,
		Handler: newServer(ob, sched, monitor, arch, reminder, hub, conf.Mail).routes(),
	}

	go func() {
		logging.Info("Admin server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Admin server failed", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logging.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Admin server shutdown failed", err)
	}

	sched.Stop()
	monitor.Stop()
	logging.Info("Stopped")
}

// buildSender picks the outbound transport from the configuration.
func buildSender(conf *config.Config) mail.Sender {
	if conf.Mail.Provider == "smtp" {
		return mail.NewSMTPSender(&mail.SMTPConfig{
			Host:     conf.Mail.SMTP.Host,
			Port:     conf.Mail.SMTP.Port,
			Username: conf.Mail.SMTP.Username,
			Password: conf.Mail.SMTP.Password,
			From:     conf.Mail.From,
		})
	}
	return mail.NewResendClient(&mail.ResendConfig{
		Endpoint: conf.Mail.Resend.Endpoint,
		APIKey:   conf.Mail.Resend.APIKey,
		From:     conf.Mail.From,
		Timeout:  conf.SendTimeout(),
	})
}

// runReminderLoop scans for upcoming inspection deadlines once at
// startup and then daily.
func runReminderLoop(ctx context.Context, reminder *archive.ReminderScanner) {
	scan := func() {
		queued, err := reminder.Scan()
		if err != nil {
			logging.Error("Reminder scan failed", err)
			return
		}
		if queued > 0 {
			logging.Info("Queued inspection reminders", map[string]interface{}{"count": queued})
		}
	}

	scan()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scan()
		}
	}
}
