package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/PixPMusic/gopher-deck/internal/config"
	"github.com/PixPMusic/gopher-deck/internal/ddj400"
	"github.com/PixPMusic/gopher-deck/internal/dispatch"
	"github.com/PixPMusic/gopher-deck/internal/engine"
	"github.com/PixPMusic/gopher-deck/internal/lights"
	"github.com/PixPMusic/gopher-deck/internal/mapping"
	"github.com/PixPMusic/gopher-deck/internal/midi"
	"github.com/PixPMusic/gopher-deck/internal/timer"
	"github.com/PixPMusic/gopher-deck/internal/tray"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long the LEDs get to go dark on exit
const shutdownTimeout = 2 * time.Second

// loadConfig reads the config file and applies the flags the user set
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	flags := cmd.Flags()
	if flags.Changed("in") {
		cfg.InPort = opts.inPort
	}
	if flags.Changed("out") {
		cfg.OutPort = opts.outPort
	}
	if flags.Changed("osc-host") {
		cfg.Engine.Host = opts.oscHost
	}
	if flags.Changed("osc-port") {
		cfg.Engine.SendPort = opts.oscPort
	}
	if flags.Changed("listen") {
		cfg.Engine.ListenAddr = opts.listenAddr
	}
	if flags.Changed("mapping") {
		cfg.MappingFile = opts.mapping
	}
	if flags.Changed("vinyl") {
		cfg.SetVinylMode(opts.vinyl)
	}
	if cmd.Flag("log-level").Changed {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func setupLogging(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

type deliverable interface {
	engine.Engine
	SetDeliverer(engine.Deliverer)
}

func openEngine(cfg *config.Config, log logrus.FieldLogger) (deliverable, func(), error) {
	if opts.dryRun {
		return openLoopbackEngine(cfg, log)
	}

	eng := engine.NewOSC(cfg.OSC(), log)
	if err := eng.Start(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to start engine bridge")
	}
	return eng, func() {
		if err := eng.Close(); err != nil {
			log.Warnf("Failed to close engine bridge: %v", err)
		}
	}, nil
}

// openLoopbackEngine serves an in-memory engine on loopback and bridges to it
// over OSC
func openLoopbackEngine(cfg *config.Config, log logrus.FieldLogger) (deliverable, func(), error) {
	host := engine.NewHost(engine.NewMemory(log), log)
	if err := host.Listen("127.0.0.1:0"); err != nil {
		return nil, nil, errors.Wrap(err, "failed to start in-memory engine")
	}

	oscCfg := cfg.OSC()
	oscCfg.Host = "127.0.0.1"
	oscCfg.SendPort = host.Port()
	oscCfg.ListenAddr = "127.0.0.1:0"
	eng := engine.NewOSC(oscCfg, log)
	if err := eng.Start(); err != nil {
		_ = host.Close()
		return nil, nil, errors.Wrap(err, "failed to start engine bridge")
	}
	if err := host.ReplyTo(eng.LocalAddr().String()); err != nil {
		_ = eng.Close()
		_ = host.Close()
		return nil, nil, err
	}
	log.Infof("Dry run: in-memory engine on 127.0.0.1:%d", host.Port())

	return eng, func() {
		if err := eng.Close(); err != nil {
			log.Warnf("Failed to close engine bridge: %v", err)
		}
		if err := host.Close(); err != nil {
			log.Warnf("Failed to close in-memory engine: %v", err)
		}
	}, nil
}

func loadTable(cfg *config.Config) (*mapping.Table, error) {
	if cfg.MappingFile == "" {
		return mapping.Default()
	}
	return mapping.Load(cfg.MappingFile)
}

// loginArgs reproduces the flags that make a login launch find the same config
func loginArgs() []string {
	if opts.configPath == "" {
		return nil
	}
	return []string{"--config", opts.configPath}
}

// statusLine describes both decks for the tray menu and icon
func statusLine(c *ddj400.Controller) (string, []string) {
	d1, d2 := c.Status(ddj400.Deck1), c.Status(ddj400.Deck2)
	line := fmt.Sprintf("Deck 1: %s  Deck 2: %s", d1.PadMode, d2.PadMode)
	if n := len(c.PlayingSamplers()); n > 0 {
		line += fmt.Sprintf("  Samplers: %d", n)
	}
	return line, []string{d1.PadMode.Abbrev(), d2.PadMode.Abbrev()}
}

func runDeck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := setupLogging(cfg.LogLevel)

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}

	eng, closeEngine, err := openEngine(cfg, log)
	if err != nil {
		return err
	}
	defer closeEngine()

	midiManager := midi.NewManager()
	defer midiManager.Close()

	out, err := midiManager.OpenOutput(cfg.OutPort)
	if err != nil {
		return errors.Wrap(err, "failed to open controller output")
	}

	timers := timer.NewScheduler(time.Now, log)
	controller := ddj400.New(eng, lights.NewGateway(out, log), timers, cfg.ControllerSettings(), log)
	router, err := mapping.NewRouter(controller, table, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	loop := dispatch.New(timers, 256, log)
	eng.SetDeliverer(loop.Deliverer(loopCtx))

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Dispatch loop stopped: %v", err)
		}
	}()
	loop.Post(loopCtx, controller.Init)

	var (
		fyneApp    fyne.App
		trayMenu   *tray.Tray
		lastStatus string
	)
	if !opts.headless {
		fyneApp = app.NewWithID("com.pixpmusic.gopherdeck")
		trayMenu = tray.Setup(fyneApp, cfg, loginArgs(), tray.Callbacks{
			OnVinylMode: func(on bool) {
				loop.Post(loopCtx, func() { controller.SetVinylMode(on) })
			},
			OnResetLights: func() {
				loop.Post(loopCtx, func() {
					controller.Shutdown()
					controller.Init()
				})
			},
			OnQuit: fyneApp.Quit,
		}, log)
		if trayMenu == nil {
			log.Warn("No system tray available")
		}
	}

	onEvent := func(msg []byte) {
		if !router.Handle(msg) {
			return
		}
		if s, icon := statusLine(controller); s != lastStatus {
			lastStatus = s
			trayMenu.SetStatus(s, icon...)
		}
	}

	stopListening, err := midiManager.Listen(cfg.InPort, func(msg []byte) {
		data := append([]byte(nil), msg...)
		loop.Post(loopCtx, func() { onEvent(data) })
	})
	if err != nil {
		return errors.Wrap(err, "failed to open controller input")
	}
	log.Infof("Listening on %q, lighting %q", cfg.InPort, cfg.OutPort)

	if fyneApp == nil {
		<-ctx.Done()
	} else {
		go func() {
			<-ctx.Done()
			fyne.Do(fyneApp.Quit)
		}()
		// Run the Fyne app (this blocks until app.Quit is called)
		fyneApp.Run()
	}

	log.Info("Shutting down")
	stopListening()
	shutdown(loop, controller, log)
	cancelLoop()
	<-loopDone
	return nil
}

// shutdown darkens the controller on the loop goroutine and waits for it
func shutdown(loop *dispatch.Loop, controller *ddj400.Controller, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	if !loop.Post(ctx, func() {
		controller.Shutdown()
		close(done)
	}) {
		log.Warn("Timed out queueing controller shutdown")
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("Timed out waiting for controller shutdown")
	}
}

func listPorts(_ *cobra.Command, _ []string) error {
	m := midi.NewManager()
	defer m.Close()

	fmt.Println("Input ports:")
	for _, name := range m.ListInPorts() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("Output ports:")
	for _, name := range m.ListOutPorts() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
