/*
ups-monitor - Monitors an X120x UPS HAT and shuts the host down
before the battery is exhausted.
Copyright (C) 2025, the ups-monitor authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/x120x/ups-monitor/internal/singleton"
	"github.com/x120x/ups-monitor/max1704x"
	"github.com/x120x/ups-monitor/pld"
	"github.com/x120x/ups-monitor/ups"
)

const (
	defaultPidfile = "/var/run/ups-monitor.pid"

	// Pause after issuing the shutdown command so the loop does not
	// keep re-issuing it while the host is powering down.
	shutdownCooldown = 30 * time.Second
)

var version = "<not set>"

var log = logrus.New()

type Args struct {
	DryRun                bool    `arg:"--dry-run" help:"log the shutdown command instead of executing it"`
	NoPLD                 bool    `arg:"--no-pld" help:"do not read AC state from the PLD GPIO (allows running alongside another monitor)"`
	Pidfile               string  `arg:"--pidfile" help:"pidfile path"`
	Iterations            int     `arg:"--iterations" help:"number of polls to run before exiting, 0 means run forever"`
	ACLossConfirmations   int     `arg:"--ac-loss-confirmations" help:"consecutive PLD low reads required to consider AC lost"`
	ShutdownConfirmations int     `arg:"--shutdown-confirmations" help:"consecutive critical readings required before shutdown"`
	MinCapacityShutdown   float64 `arg:"--min-capacity-shutdown" help:"shutdown if capacity is below this percentage while on battery"`
	MinVoltageShutdown    float64 `arg:"--min-voltage-shutdown" help:"shutdown if voltage is below this while on battery"`
	SleepSeconds          int     `arg:"--sleep" help:"seconds between checks"`
	I2CBus                string  `arg:"--i2c-bus" help:"I2C bus name, empty selects the first available bus"`
	GPIOChip              string  `arg:"--gpio-chip" help:"GPIO chip carrying the PLD line"`
	PLDPin                int     `arg:"--pld-pin" help:"PLD line offset on the GPIO chip"`
	QuickStart            bool    `arg:"--quick-start" help:"re-seed the fuel gauge charge estimate at startup"`
	LogLevel              string  `arg:"-l,--log-level" help:"set the logging level (debug, info, warn, error)"`
}

func (Args) Version() string {
	return version
}

// defaultArgs seeds the flag defaults from /etc/ups-monitor.toml when
// it exists, falling back to the built-in defaults. Flags given on the
// command line override both.
func defaultArgs() Args {
	v := viper.New()
	v.SetDefault("dry-run", false)
	v.SetDefault("no-pld", false)
	v.SetDefault("pidfile", defaultPidfile)
	v.SetDefault("ac-loss-confirmations", ups.DefaultACLossConfirmations)
	v.SetDefault("shutdown-confirmations", ups.DefaultShutdownConfirmations)
	v.SetDefault("min-capacity-shutdown", ups.DefaultMinCapacityShutdown)
	v.SetDefault("min-voltage-shutdown", ups.DefaultMinVoltageShutdown)
	v.SetDefault("sleep", int(ups.DefaultPollInterval/time.Second))
	v.SetDefault("i2c-bus", "")
	v.SetDefault("gpio-chip", pld.DefaultChip)
	v.SetDefault("pld-pin", pld.DefaultPin)
	v.SetDefault("log-level", "info")

	v.SetConfigName("ups-monitor")
	v.SetConfigType("toml")
	v.AddConfigPath("/etc")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warnf("Could not read config file: %v", err)
		}
	} else {
		log.Info("Loaded defaults from ", v.ConfigFileUsed())
	}

	return Args{
		DryRun:                v.GetBool("dry-run"),
		NoPLD:                 v.GetBool("no-pld"),
		Pidfile:               v.GetString("pidfile"),
		ACLossConfirmations:   v.GetInt("ac-loss-confirmations"),
		ShutdownConfirmations: v.GetInt("shutdown-confirmations"),
		MinCapacityShutdown:   v.GetFloat64("min-capacity-shutdown"),
		MinVoltageShutdown:    v.GetFloat64("min-voltage-shutdown"),
		SleepSeconds:          v.GetInt("sleep"),
		I2CBus:                v.GetString("i2c-bus"),
		GPIOChip:              v.GetString("gpio-chip"),
		PLDPin:                v.GetInt("pld-pin"),
		LogLevel:              v.GetString("log-level"),
	}
}

func procArgs() Args {
	args := defaultArgs()
	arg.MustParse(&args)
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	args := procArgs()
	setLogLevel(args.LogLevel)

	log.Info("Running version: ", version)

	cfg := ups.Config{
		MinCapacityShutdown:   args.MinCapacityShutdown,
		MinVoltageShutdown:    args.MinVoltageShutdown,
		ACLossConfirmations:   args.ACLossConfirmations,
		ShutdownConfirmations: args.ShutdownConfirmations,
		PollInterval:          time.Duration(args.SleepSeconds) * time.Second,
		DryRun:                args.DryRun,
		ACSensing:             !args.NoPLD,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if args.Iterations < 0 {
		return fmt.Errorf("iterations must be >= 0, got %d", args.Iterations)
	}
	if cfg.DryRun {
		log.Info("DRY-RUN enabled: shutdown will NOT be executed.")
	}
	if !cfg.ACSensing {
		log.Info("NO-PLD enabled: will not read AC/adapter state from GPIO.")
	}

	lock, err := singleton.Acquire(args.Pidfile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Errorf("Error removing pidfile: %v", err)
		}
	}()

	if _, err := host.Init(); err != nil {
		return err
	}
	log.Info("Initializing I2C bus...")
	bus, err := i2creg.Open(args.I2CBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	gauge, err := max1704x.New(bus)
	if err != nil {
		return err
	}
	if args.QuickStart {
		log.Info("Re-seeding fuel gauge charge estimate...")
		if err := gauge.QuickStart(); err != nil {
			return err
		}
	}

	var ac pld.Reader
	if cfg.ACSensing {
		log.Infof("Initializing GPIO for PLD (%s pin %d)...", args.GPIOChip, args.PLDPin)
		line, err := pld.Open(args.GPIOChip, args.PLDPin)
		if err != nil {
			return err
		}
		ac = line
		defer func() {
			if err := line.Close(); err != nil {
				log.Errorf("Error releasing PLD line: %v", err)
			}
		}()
	}

	m := newMonitor(cfg, gauge, ac, &systemExecutor{dryRun: cfg.DryRun})
	if err := startService(m); err != nil {
		// The monitor must keep running even when the status service
		// cannot register.
		log.Warnf("D-Bus status service unavailable: %v", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Entering main monitoring loop...")
	log.Infof("Shutdown policy (only when on battery): capacity < %.1f%% OR voltage < %.2fV.",
		cfg.MinCapacityShutdown, cfg.MinVoltageShutdown)
	log.Infof("Confirmations: AC loss=%d, shutdown=%d.",
		cfg.ACLossConfirmations, cfg.ShutdownConfirmations)

	return m.run(sigs, args.Iterations)
}
