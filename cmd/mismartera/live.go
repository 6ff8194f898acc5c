package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yohannes916/mismartera/pkg/config"
	"github.com/yohannes916/mismartera/pkg/datasource"
	"github.com/yohannes916/mismartera/pkg/engine"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/timeservice"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "run a live session following the wall clock",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetString("config"))
		if err != nil {
			return err
		}
		if cfg.Mode != config.ModeLive {
			return errors.Errorf("config mode is %q, use the backtest command", cfg.Mode)
		}

		loc, err := timeservice.LocationForGroup(cfg.ExchangeGroup)
		if err != nil {
			return err
		}

		ts := timeservice.New(timeservice.USEquityConfig(loc))
		source, err := datasource.New(viper.GetString("source"), cfg.DataDir, cfg.ExchangeGroup, ts)
		if err != nil {
			return err
		}

		data := session.NewSessionData()
		coord := engine.NewSessionCoordinator(cfg, data, ts, source)

		coord.OnSymbolFailed(func(symbol, reason string) {
			log.Warnf("symbol %s failed: %s", symbol, reason)
		})
		coord.OnLagDetected(func(symbol string, lag time.Duration) {
			log.Warnf("lag detected on %s: %s", symbol, lag)
		})
		coord.OnSessionDeactivated(func() {
			log.Warn("session deactivated, external reads gated")
		})
		coord.OnSessionActivated(func() {
			log.Info("session activated")
		})
		coord.OnSessionEnd(func(date time.Time) {
			log.Infof("session ended for %s", date.Format("2006-01-02"))
		})

		if addr := viper.GetString("metrics-bind"); addr != "" {
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(addr, nil); err != nil {
					log.WithError(err).Error("metrics listener stopped")
				}
			}()
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigC := make(chan os.Signal, 1)
		signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigC
			log.Info("signal received, stopping")
			coord.Stop()
			cancel()
		}()

		return coord.RunLive(ctx)
	},
}

func init() {
	liveCmd.Flags().String("source", "parquet", "data source backing the live stream")

	if err := viper.BindPFlags(liveCmd.Flags()); err != nil {
		log.WithError(err).Error("binding live flags")
	}
	rootCmd.AddCommand(liveCmd)
}
