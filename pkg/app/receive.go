package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/womat/debug"

	"irl/pkg/decoder"
	"irl/pkg/irprotocol"
	"irl/pkg/mqtt"
)

// Result is a received message as published to mqtt and the web service.
type Result struct {
	Time time.Time `json:"time"`
	irprotocol.Data
	// Timings are the recorded intervals (us) of a raw message
	Timings []uint16 `json:"timings,omitempty"`
}

// receive polls the receiver until ctx is done.
func (app *App) receive(ctx context.Context) error {
	ticker := time.NewTicker(app.config.Decoder.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			app.poll(ctx)
		}
	}
}

func (app *App) poll(ctx context.Context) {
	if !app.receiver.Available() {
		return
	}

	d := app.receiver.Read()
	if !d.Available() {
		// Reset raced with the read
		return
	}

	r := Result{Time: time.Now(), Data: d}
	if d.Protocol == irprotocol.Raw {
		buf := make([]uint16, decoder.RawMaxIntervals)
		r.Timings = buf[:app.receiver.Timings(buf)]
	}
	app.handle(ctx, r)
}

// handle stores, counts and publishes the received message.
func (app *App) handle(ctx context.Context, r Result) {
	debug.InfoLog.Printf("received %v address 0x%04x command 0x%08x", r.Protocol, r.Address, r.Command)

	app.mu.Lock()
	app.last = r
	app.mu.Unlock()

	app.metrics.received.WithLabelValues(r.Protocol.String()).Inc()

	if app.config.MQTT.Topic == "" {
		return
	}

	payload, err := json.Marshal(r)
	if err != nil {
		debug.ErrorLog.Printf("can't marshal result: %v", err)
		return
	}

	msg := mqtt.Message{
		Topic:    app.config.MQTT.Topic,
		Payload:  payload,
		Qos:      app.config.MQTT.Qos,
		Retained: app.config.MQTT.Retained,
	}
	select {
	case app.mqtt.C <- msg:
	case <-ctx.Done():
	}
}

// lastResult returns the last received message.
func (app *App) lastResult() Result {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.last
}
