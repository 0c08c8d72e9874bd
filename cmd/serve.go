package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/bnema/waymon/internal/capability"
	"github.com/bnema/waymon/internal/config"
	"github.com/bnema/waymon/internal/consent"
	"github.com/bnema/waymon/internal/obs"
	"github.com/bnema/waymon/internal/portal"
	"github.com/bnema/waymon/internal/ratelimit"
	"github.com/bnema/waymon/internal/session"
	"github.com/bnema/waymon/internal/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal service on the session bus",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("consent-provider", "", "Override consent.provider from config (auto|interactive|programmatic)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := config.Init(); err != nil {
		obs.Warnf("config: %v, continuing with defaults", err)
	}
	cfg := config.Get()

	if override, _ := cmd.Flags().GetString("consent-provider"); override != "" {
		cfg.Consent.Provider = override
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	discovery := capability.New(cfg.Probe.Budget())
	discovery.Refresh(ctx)

	provider, err := buildConsentProvider(cfg.Consent.Provider)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(ratelimit.Config{
		Keyboard: ratelimit.BucketConfig{Rate: cfg.RateLimit.Keyboard.Rate, Burst: cfg.RateLimit.Keyboard.Burst},
		Pointer:  ratelimit.BucketConfig{Rate: cfg.RateLimit.Pointer.Rate, Burst: cfg.RateLimit.Pointer.Burst},
		Touchscreen: ratelimit.BucketConfig{
			Rate:  cfg.RateLimit.Touch.Rate,
			Burst: cfg.RateLimit.Touch.Burst,
		},
	})

	channelSink := sink.NewChannelSink(cfg.Sink.QueueCapacity)
	manager := session.NewManager(cfg.MaxSessions, limiter, channelSink)

	engine := portal.New(manager, provider, discovery, cfg)

	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	defer conn.Close()

	if err := engine.Export(conn); err != nil {
		return fmt.Errorf("export portal engine: %w", err)
	}

	reply, err := conn.RequestName("org.freedesktop.impl.portal.desktop.waymon", dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name already owned by another process")
	}

	obs.Infof("portal: serving %s at %s", portal.InterfaceName, portal.ObjectPath)

	<-ctx.Done()
	obs.Info("portal: shutting down")
	engine.Shutdown()
	return nil
}

func buildConsentProvider(kind string) (consent.Provider, error) {
	switch kind {
	case "auto":
		return consent.AutoApprover{}, nil
	case "programmatic":
		return consent.NewProgrammaticProvider(), nil
	case "interactive", "":
		return consent.NewInteractiveProvider(consent.NewHuhPrompter()), nil
	default:
		return nil, fmt.Errorf("unknown consent provider %q", kind)
	}
}
