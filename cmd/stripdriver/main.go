package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-stripdriver/internal/app"
	"github.com/coreman2200/funtimes-stripdriver/internal/config"
	diag "github.com/coreman2200/funtimes-stripdriver/internal/diagnostics"
	"github.com/coreman2200/funtimes-stripdriver/internal/monitor"
)

func main() {
	// ---- Flags (config.yaml supplies the rest) ----
	var (
		configPath  = flag.String("config", "config.yaml", "path to config.yaml")
		transport   = flag.String("transport", "", "override transport: bitbang | spi | console")
		addr        = flag.String("addr", "", "override monitor listen address, e.g. :8080")
		intervalMs  = flag.Int("interval-ms", -1, "override control loop interval in milliseconds")
		spin        = flag.Bool("calibrate", false, "calibrate a spin delay instead of polling the clock")
		writeConfig = flag.Bool("write-config", false, "write the default config to -config and exit")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *writeConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("write config")
		}
		log.Info().Str("path", *configPath).Msg("default config written")
		return
	}

	// ---- Load config.yaml (optional) ----
	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config rejected")
		}
		log.Warn().Str("path", *configPath).Msg("no config; using defaults")
		cfg = config.Default()
	}

	// ---- Flag overrides ----
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *addr != "" {
		cfg.Monitor.Addr = *addr
	}
	if *intervalMs >= 0 {
		cfg.IntervalMs = *intervalMs
	}
	if *spin {
		cfg.Timing.Spin = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// ---- Host ----
	hw := app.Hardware{}
	if cfg.Transport != config.TransportConsole {
		if _, err := host.Init(); err != nil {
			log.Fatal().Err(err).Msg("host init")
		}
		hw.OpenSPI = func(name string) (spi.PortCloser, error) { return spireg.Open(name) }
	} else {
		// Console previews run anywhere; pins are simulated.
		hw.Pins = simPins
	}

	core, err := app.InitCore(cfg, hw)
	if err != nil && cfg.Transport == config.TransportSPI {
		log.Warn().Err(err).Msg("SPI init failed; falling back to console")
		cfg.Transport = config.TransportConsole
		core, err = app.InitCore(cfg, app.Hardware{Pins: simPins})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("driver init")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Monitor ----
	if cfg.Monitor.Addr != "" {
		hub := monitor.New(core.Eng.Stats)
		core.Eng.Observe(hub.OnFrame)
		for _, d := range core.Report() {
			hub.Push(d)
		}
		for _, h := range core.Reg.Active() {
			if ch, ok := core.Reg.Lookup(h); ok {
				hub.Push(diag.ChannelConfigured(ch))
			}
		}
		for _, p := range core.Players {
			hub.AttachPlayer(p)
		}
		go func() {
			if err := hub.Serve(ctx, cfg.Monitor.Addr); err != nil {
				log.Error().Err(err).Msg("monitor stopped")
			}
		}()
	}

	// ---- Run until SIGINT/SIGTERM ----
	log.Info().
		Str("transport", cfg.Transport).
		Dur("interval", cfg.Interval()).
		Str("ticks", cfg.TickSource).
		Msg("running")
	if err := app.NewLooper(core, cfg.Interval()).Run(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
}
