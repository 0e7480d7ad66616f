package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/womat/debug"

	"irl/pkg/app/config"
	"irl/pkg/irprotocol"
	"irl/pkg/mqtt"
	"irl/pkg/raspberry"
	"irl/pkg/sender"
)

var (
	ErrNoSender       = errors.New("sender is not configured")
	ErrInvalidRequest = errors.New("invalid send request")
)

// maxRepeat limits the repetitions of a request, a request blocks the sender for its whole duration.
const maxRepeat = 20

// Request is a send request received from the web service or the mqtt command topic, e.g.
//
//	{"protocol":"nec","address":0,"command":26,"repeat":2}
type Request struct {
	Protocol irprotocol.Protocol `json:"protocol"`
	Address  uint16              `json:"address"`
	Command  uint32              `json:"command"`
	// Repeat is the count of repetitions, NEC messages are repeated with the repeat code.
	Repeat int `json:"repeat"`
}

// period is the time from the start of a message to the start of its repetition.
func period(p irprotocol.Protocol) time.Duration {
	switch p | irprotocol.New {
	case irprotocol.Sony8, irprotocol.Sony12, irprotocol.Sony15, irprotocol.Sony20:
		return 45 * time.Millisecond
	case irprotocol.Panasonic:
		return 130 * time.Millisecond
	}
	return 108 * time.Millisecond
}

// transmit sends the message of req and its repetitions.
func (app *App) transmit(req Request) error {
	if app.sender == nil {
		return ErrNoSender
	}
	if req.Repeat < 0 || req.Repeat > maxRepeat {
		return fmt.Errorf("%w: repeat %v out of range 0..%v", ErrInvalidRequest, req.Repeat, maxRepeat)
	}

	app.txMu.Lock()
	defer app.txMu.Unlock()

	start := time.Now()
	if err := app.sender.Transmit(req.Protocol, req.Address, req.Command); err != nil {
		app.metrics.sendErrors.Inc()
		return err
	}
	app.metrics.sent.WithLabelValues(req.Protocol.String()).Inc()

	nec := req.Protocol|irprotocol.New == irprotocol.NEC || req.Protocol|irprotocol.New == irprotocol.NECExtended
	for i := 1; i <= req.Repeat; i++ {
		time.Sleep(time.Until(start.Add(time.Duration(i) * period(req.Protocol))))

		var err error
		if nec {
			err = app.sender.Repeat()
		} else {
			err = app.sender.Transmit(req.Protocol, req.Address, req.Command)
		}
		if err != nil {
			app.metrics.sendErrors.Inc()
			return err
		}
	}

	debug.InfoLog.Printf("sent %v address 0x%04x command 0x%08x (%v repeats)", req.Protocol, req.Address, req.Command, req.Repeat)
	return nil
}

// handleCommand is the handler of the mqtt command topic.
func (app *App) handleCommand(msg mqtt.Message) {
	var req Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		debug.ErrorLog.Printf("invalid send request on topic %v: %v", msg.Topic, err)
		return
	}

	if err := app.transmit(req); err != nil {
		debug.ErrorLog.Printf("can't send %v: %v", req.Protocol, err)
	}
}

// Send transmits req on the configured IR LED without starting the receiver.
func Send(cfg *config.Config, req Request) error {
	if cfg.Tx.Gpio < 0 {
		return ErrNoSender
	}

	out, err := raspberry.OpenOutput(cfg.Tx.Gpio)
	if err != nil {
		return fmt.Errorf("can't open pin %v: %w", cfg.Tx.Gpio, err)
	}
	defer func() { _ = out.Close() }()

	app := &App{
		config:  cfg,
		metrics: newMetrics(),
		sender:  sender.New(sender.Config{Line: out, DutyCycle: cfg.Tx.DutyCycle}),
	}
	return app.transmit(req)
}
