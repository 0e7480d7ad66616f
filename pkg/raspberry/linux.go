//go:build linux

package raspberry

import (
	"fmt"
	"sync"

	"github.com/warthog618/gpio"
)

// the gpio memory is mapped once for all outputs
var (
	memMu   sync.Mutex
	memRefs int
	outputs = map[int]*Output{}
)

// Output is an output pin driving the IR LED.
// The pin is accessed through the memory mapped gpio registers, a level change takes
// well below a microsecond, which is required to modulate the carrier.
type Output struct {
	gpioPin *gpio.Pin
}

// OpenOutput maps the gpio memory range from /dev/gpiomem and sets the pin as output (low).
// The pin number provided is the BCM GPIO number.
func OpenOutput(pin int) (*Output, error) {
	memMu.Lock()
	defer memMu.Unlock()

	if pin < 0 || pin >= gpio.MaxGPIOPin {
		return nil, ErrInvalidParam
	}
	if _, ok := outputs[pin]; ok {
		return nil, fmt.Errorf("pin %v already used", pin)
	}

	if memRefs == 0 {
		if err := gpio.Open(); err != nil {
			return nil, err
		}
	}
	memRefs++

	o := &Output{gpioPin: gpio.NewPin(pin)}
	o.gpioPin.Low()
	o.gpioPin.Output()
	outputs[pin] = o
	return o, nil
}

// High switches the IR LED on.
func (o *Output) High() {
	o.gpioPin.High()
}

// Low switches the IR LED off.
func (o *Output) Low() {
	o.gpioPin.Low()
}

// Pin returns the pin number that this Output represents.
func (o *Output) Pin() int {
	return o.gpioPin.Pin()
}

// Close switches the pin to input and unmaps the gpio memory after the last output is closed.
func (o *Output) Close() error {
	memMu.Lock()
	defer memMu.Unlock()

	if _, ok := outputs[o.Pin()]; !ok {
		return nil
	}
	delete(outputs, o.Pin())

	o.gpioPin.Low()
	o.gpioPin.Input()

	memRefs--
	if memRefs == 0 {
		return gpio.Close()
	}
	return nil
}
