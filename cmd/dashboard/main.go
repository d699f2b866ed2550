package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"resto-dashboard/internal/api"
	"resto-dashboard/internal/common/config"
	"resto-dashboard/internal/common/logger"
	"resto-dashboard/internal/notify"
	"resto-dashboard/internal/realtime"
	amqptransport "resto-dashboard/internal/realtime/amqp"
	wstransport "resto-dashboard/internal/realtime/ws"
	"resto-dashboard/internal/session"
	"resto-dashboard/internal/store"
	"resto-dashboard/internal/view"
)

func main() {
	transportName := flag.String("transport", "ws", "order feed transport: ws | amqp")
	tenant := flag.String("tenant", "", "tenant id (defaults to the saved session's tenant)")
	token := flag.String("token", "", "auth token (defaults to the saved session's token)")
	currency := flag.String("currency", "FCFA", "currency label for order summaries")
	mute := flag.Bool("mute", false, "start with sound notifications disabled")
	flag.Parse()

	cfg := config.Load()
	lg := logger.New("dashboard")
	defer lg.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stale cached domain data never survives a restart; only the session does.
	if err := session.Purge(cfg.StateDir); err != nil {
		lg.Warn("state_purge_failed", zap.Error(err))
	}
	sess, err := session.Load(cfg.StateDir)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		lg.Error("session_load_failed", zap.Error(err))
		os.Exit(1)
	}
	if *tenant == "" {
		*tenant = sess.User.TenantID
	}
	if *token == "" {
		*token = sess.Token
	}
	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "--tenant is required when no session is saved")
		os.Exit(2)
	}

	var transport realtime.Transport
	endpoint := cfg.WSBaseURL
	switch *transportName {
	case "ws":
		transport = wstransport.New()
	case "amqp":
		transport = amqptransport.New()
		endpoint = cfg.AMQPURL
	default:
		fmt.Fprintln(os.Stderr, "--transport must be ws or amqp")
		os.Exit(2)
	}

	st := store.New()
	client := api.New(cfg.APIBaseURL, *token, cfg.RequestTimeout, logger.New("api"))

	// Startup snapshot; the live feed takes over from whatever we got.
	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	if orders, err := client.ListOrders(loadCtx, *tenant); err != nil {
		lg.Warn("snapshot_load_failed", zap.Error(err))
	} else if err := st.Prime(orders); err != nil {
		lg.Warn("snapshot_prime_failed", zap.Error(err))
	} else {
		lg.Info("snapshot_loaded", zap.Int("orders", len(orders)))
	}
	loadCancel()

	sink := notify.NewSink(bellBeeper{}, terminalPresenter{}, *currency, logger.New("notify"))
	defer sink.Close()
	if *mute {
		sink.SetSound(false)
	}

	mgr := realtime.NewManager(transport, realtime.Config{
		Endpoint:          endpoint,
		TenantID:          *tenant,
		HeartbeatInterval: cfg.HeartbeatInterval,
		BackoffBase:       cfg.BackoffBase,
		BackoffMax:        cfg.BackoffMax,
		MaxRetries:        cfg.MaxRetries,
	}, logger.New("realtime"))

	binding := view.NewBinding(st, mgr, client, sink, sink, cfg.RequestTimeout, logger.New("view"))
	mgr.OnEvent(binding.HandleEvent)

	lg.Info("dashboard_started", zap.String("tenant_id", *tenant), zap.String("transport", *transportName))
	mgr.Connect()

	statusTicker := time.NewTicker(time.Minute)
	defer statusTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			mgr.Disconnect()
			lg.Info("dashboard_stopped")
			return
		case <-statusTicker.C:
			snap := binding.Snapshot()
			lg.Info("dashboard_status",
				zap.String("state", string(snap.Conn.State)),
				zap.Int("orders", len(snap.Orders)),
				zap.Int("unseen", snap.UnseenCount))
		}
	}
}

// bellBeeper rings the terminal bell.
type bellBeeper struct{}

func (bellBeeper) Beep() error {
	_, err := os.Stdout.WriteString("\a")
	return err
}

// terminalPresenter prints the one-line order summary.
type terminalPresenter struct{}

func (terminalPresenter) Present(summary string) error {
	_, err := fmt.Fprintf(os.Stdout, "[%s] new order: %s\n",
		time.Now().Format("15:04:05"), summary)
	return err
}
