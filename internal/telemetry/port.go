package telemetry

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// OpenPort opens the serial transport the sensor board is attached to.
// Failing to open at startup is fatal to the watcher, so errors carry the
// port name for the diagnostic.
func OpenPort(name string, baud int) (io.ReadCloser, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s @ %d: %w", name, baud, err)
	}
	return port, nil
}
