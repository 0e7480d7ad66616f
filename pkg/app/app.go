package app

import (
	"context"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
	"golang.org/x/sync/errgroup"

	"irl/pkg/app/config"
	"irl/pkg/decoder"
	"irl/pkg/mqtt"
	"irl/pkg/port"
	"irl/pkg/raspberry"
	"irl/pkg/sender"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// chip is the gpio chip of the receiver line
	chip *raspberry.Chip
	// input is the line of the IR receiver module
	input *raspberry.Input
	// output is the pin of the IR LED (optional)
	output *raspberry.Output

	// receiver decodes the edges of input
	receiver *decoder.Receiver
	// sender is nil if no IR LED is configured
	sender *sender.Device
	// txMu serializes the transmissions
	txMu sync.Mutex

	metrics *metrics

	// last is the last received message
	mu   sync.RWMutex
	last Result

	group  *errgroup.Group
	cancel context.CancelFunc

	// restart signals application restart
	restart chan struct{}
	// shutdown signals application shutdown
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:    mqtt.New(),
		metrics: newMetrics(),

		restart:  make(chan struct{}),
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.group, ctx = errgroup.WithContext(ctx)

	go app.mqtt.Service()
	app.group.Go(app.runWebServer)
	app.group.Go(func() error { return app.receive(ctx) })

	go func() {
		if err := app.group.Wait(); err != nil {
			debug.ErrorLog.Printf("app stopped: %v", err)
		}
		app.shutdownOnce.Do(func() { close(app.shutdown) })
	}()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	chain, err := decoder.Build(app.policy(), app.config.Decoder.ProtocolList...)
	if err != nil {
		debug.ErrorLog.Printf("can't build decoder: %v", err)
		return err
	}

	if app.chip, err = raspberry.Open(app.config.Rx.Chip); err != nil {
		debug.ErrorLog.Printf("can't open gpio chip: %v", err)
		return err
	}

	// the watchdog has to fire after the receiver timeout
	idle := app.config.Decoder.Timeout + app.config.Decoder.Timeout/10
	if app.input, err = app.chip.NewInput(app.config.Rx.Gpio, app.config.Rx.Terminator, idle); err != nil {
		debug.ErrorLog.Printf("can't open line %v: %v", app.config.Rx.Gpio, err)
		return err
	}

	app.receiver = decoder.New(app.input, chain)
	if err = app.receiver.Begin(); err != nil {
		debug.ErrorLog.Printf("can't start receiver: %v", err)
		return err
	}
	debug.InfoLog.Printf("receiving %v on line %v", app.receiver.Protocols(), app.config.Rx.Gpio)

	if app.config.Tx.Gpio >= 0 {
		if app.output, err = raspberry.OpenOutput(app.config.Tx.Gpio); err != nil {
			debug.ErrorLog.Printf("can't open pin %v: %v", app.config.Tx.Gpio, err)
			return err
		}

		app.sender = sender.New(sender.Config{
			Line:      app.output,
			DutyCycle: app.config.Tx.DutyCycle,
			Mask:      app.receiver,
		})
		debug.InfoLog.Printf("sending on pin %v", app.config.Tx.Gpio)
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, app.config.MQTT.ClientID); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}
	if err = app.mqtt.Subscribe(app.config.MQTT.CommandTopic, app.config.MQTT.Qos, app.handleCommand); err != nil {
		debug.ErrorLog.Printf("can't subscribe topic %v: %v", app.config.MQTT.CommandTopic, err)
		return err
	}

	// initDefaultRoutes should be always called last because it may access things like app.receiver
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// policy returns the timing policy of the decoder.
func (app *App) policy() decoder.Policy {
	d := app.config.Decoder
	return decoder.Policy{
		Tolerance:    d.Tolerance,
		Slack:        port.Micros(d.Slack),
		Timeout:      port.MicrosOf(d.Timeout),
		RepeatWindow: port.MicrosOf(d.RepeatWindow),
	}
}

// Restart returns the read only restart channel.
// Restart is used to be able to react on application restart. (see cmd/main.go)
func (app *App) Restart() <-chan struct{} {
	return app.restart
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/main.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	if app.cancel != nil {
		app.cancel()
		_ = app.web.Shutdown()
		_ = app.group.Wait()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.receiver != nil {
		if err := app.receiver.End(); err != nil {
			debug.ErrorLog.Printf("can't stop receiver: %v", err)
		}
	}
	if app.output != nil {
		_ = app.output.Close()
	}
	if app.chip != nil {
		_ = app.chip.Close()
	}
	return nil
}
