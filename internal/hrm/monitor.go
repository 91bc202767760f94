// Package hrm connects to a BLE heart rate strap and streams bpm readings.
// The workout runs fine without one; a missing or lost strap just leaves
// heart rate at zero in the unit records.
package hrm

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/sprintcoach/sprintcoach/internal/events"
	"github.com/sprintcoach/sprintcoach/internal/safego"
)

// Standard GATT Heart Rate service.
// See: https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
const (
	ServiceUUIDHeartRate         = "0000180d-0000-1000-8000-00805f9b34fb"
	CharUUIDHeartRateMeasurement = "00002a37-0000-1000-8000-00805f9b34fb"
)

// ErrNoStrapFound reports that the scan window closed without seeing a
// device advertising the heart rate service.
var ErrNoStrapFound = errors.New("hrm: no heart rate strap found")

// Monitor owns one strap connection. Readings are published to subscribers
// and the latest value is kept for polling (the orchestrator samples it at
// unit completion).
type Monitor struct {
	logger  *log.Logger
	adapter *bluetooth.Adapter
	reading *events.CallbackEvent[int]

	mu        sync.Mutex
	latest    int
	connected bool
	device    bluetooth.Device
}

// NewMonitor creates a monitor on the given adapter; nil selects the
// platform default adapter.
func NewMonitor(logger *log.Logger, adapter *bluetooth.Adapter) *Monitor {
	if logger == nil {
		panic("Monitor: logger cannot be nil")
	}
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	return &Monitor{
		logger:  logger,
		adapter: adapter,
		reading: events.NewCallbackEvent[int](true),
	}
}

// Start enables the adapter, scans for a strap advertising the heart rate
// service, connects to the first one seen and subscribes to measurements.
// Blocks for at most scanTimeout.
func (m *Monitor) Start(scanTimeout time.Duration) error {
	if err := m.adapter.Enable(); err != nil {
		return fmt.Errorf("enabling BLE adapter: %w", err)
	}

	result, err := m.scan(scanTimeout)
	if err != nil {
		return err
	}
	m.logger.Printf("Monitor: connecting to %s (%s)", result.LocalName(), result.Address)

	device, err := m.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connecting to strap: %w", err)
	}

	if err := m.subscribe(device); err != nil {
		device.Disconnect()
		return err
	}

	m.mu.Lock()
	m.device = device
	m.connected = true
	m.mu.Unlock()

	m.logger.Printf("Monitor: heart rate notifications enabled")
	return nil
}

// scan blocks until a strap shows up or the timeout expires.
func (m *Monitor) scan(timeout time.Duration) (bluetooth.ScanResult, error) {
	svcUUID, err := bluetooth.ParseUUID(ServiceUUIDHeartRate)
	if err != nil {
		return bluetooth.ScanResult{}, fmt.Errorf("parsing service UUID: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 1)
	safego.Go(m.logger, func() {
		err := m.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !result.HasServiceUUID(svcUUID) {
				return
			}
			select {
			case found <- result:
			default:
			}
			adapter.StopScan()
		})
		if err != nil {
			m.logger.Printf("Monitor: scan error: %v", err)
		}
	})

	select {
	case result := <-found:
		return result, nil
	case <-time.After(timeout):
		if err := m.adapter.StopScan(); err != nil {
			m.logger.Printf("Monitor: stopping scan: %v", err)
		}
		return bluetooth.ScanResult{}, ErrNoStrapFound
	}
}

func (m *Monitor) subscribe(device bluetooth.Device) error {
	svcUUID, _ := bluetooth.ParseUUID(ServiceUUIDHeartRate)
	charUUID, _ := bluetooth.ParseUUID(CharUUIDHeartRateMeasurement)

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return fmt.Errorf("discovering heart rate service: %w", err)
	}
	if len(services) == 0 {
		return errors.New("hrm: heart rate service not found on device")
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil {
		return fmt.Errorf("discovering measurement characteristic: %w", err)
	}
	if len(chars) == 0 {
		return errors.New("hrm: measurement characteristic not found")
	}

	return chars[0].EnableNotifications(func(buf []byte) {
		bpm, err := ParseMeasurement(buf)
		if err != nil {
			m.logger.Printf("Monitor: bad measurement: %v (raw: %v)", err, buf)
			return
		}
		m.apply(bpm)
	})
}

func (m *Monitor) apply(bpm int) {
	m.mu.Lock()
	m.latest = bpm
	m.mu.Unlock()
	m.reading.Publish(bpm)
}

// Latest returns the most recent reading in bpm, zero before the first one.
func (m *Monitor) Latest() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// OnReading registers a callback for each measurement; the latest reading
// is replayed to new subscribers. Returns the unsubscribe function.
func (m *Monitor) OnReading(fn func(bpm int)) func() {
	return m.reading.Subscribe(fn)
}

// Stop disconnects from the strap. Safe to call when never connected.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	connected := m.connected
	device := m.device
	m.connected = false
	m.mu.Unlock()

	if !connected {
		return nil
	}
	return device.Disconnect()
}

// ParseMeasurement decodes a Heart Rate Measurement characteristic value.
// Flag bit 0 selects an 8- or 16-bit bpm field.
func ParseMeasurement(buf []byte) (int, error) {
	if len(buf) < 2 {
		return 0, fmt.Errorf("heart rate data too short: %d bytes", len(buf))
	}

	flags := buf[0]
	if flags&0x01 == 0 {
		return int(buf[1]), nil
	}
	if len(buf) < 3 {
		return 0, fmt.Errorf("heart rate UINT16 data too short: %d bytes", len(buf))
	}
	return int(uint16(buf[1]) | uint16(buf[2])<<8), nil
}
