package main

import (
	"context"
	"encoding/json"
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

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "run the configured backtest window",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetString("config"))
		if err != nil {
			return err
		}
		if cfg.Mode != config.ModeBacktest {
			return errors.Errorf("config mode is %q, use the live command", cfg.Mode)
		}

		loc, err := timeservice.LocationForGroup(cfg.ExchangeGroup)
		if err != nil {
			return err
		}

		start, _, err := cfg.Backtest.Window()
		if err != nil {
			return err
		}

		ts := timeservice.NewVirtual(timeservice.USEquityConfig(loc), start)
		source, err := datasource.New("parquet", cfg.DataDir, cfg.ExchangeGroup, ts)
		if err != nil {
			return err
		}

		data := session.NewSessionData()
		coord := engine.NewSessionCoordinator(cfg, data, ts, source)

		coord.OnPhaseStart(func(phase string, date time.Time) {
			log.WithField("date", date.Format("2006-01-02")).Infof("phase %s started", phase)
		})
		coord.OnSymbolFailed(func(symbol, reason string) {
			log.Warnf("symbol %s failed: %s", symbol, reason)
		})
		coord.OnLagDetected(func(symbol string, lag time.Duration) {
			log.Warnf("lag detected on %s: %s", symbol, lag)
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
		}()

		if err := coord.Run(ctx); err != nil {
			return err
		}

		if out := viper.GetString("snapshot-out"); out != "" {
			raw, err := json.MarshalIndent(data.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o644); err != nil {
				return err
			}
			log.Infof("snapshot written to %s", out)
		}
		return nil
	},
}

func init() {
	backtestCmd.Flags().String("metrics-bind", "", "bind address for prometheus metrics, e.g. :9090")
	backtestCmd.Flags().String("snapshot-out", "", "write the final session snapshot to this file")

	if err := viper.BindPFlags(backtestCmd.Flags()); err != nil {
		log.WithError(err).Error("binding backtest flags")
	}
	rootCmd.AddCommand(backtestCmd)
}
