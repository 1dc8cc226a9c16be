// Package monitor talks to a running sketch over its serial port. It
// streams what the board prints, sends lines to it and resets it by
// pulsing DTR.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ResetPulse is how long DTR is held low to reset a board.
const ResetPulse = 100 * time.Millisecond

// pollInterval bounds each blocking read so Lines notices cancellation.
const pollInterval = 100 * time.Millisecond

var ErrClosed = errors.New("monitor: port closed")

// Port is the part of a serial port the monitor uses. serial.Port
// satisfies it.
type Port interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
	SetReadTimeout(t time.Duration) error
}

// OpenFunc opens the named port at baud.
type OpenFunc func(name string, baud int) (Port, error)

// OpenSerial opens a real serial port, 8N1.
func OpenSerial(name string, baud int) (Port, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Ports lists the serial ports the operating system reports. It needs no
// arduino-cli and knows nothing about boards.
func Ports() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("monitor: list ports: %w", err)
	}
	return names, nil
}

// Monitor is an open connection to one board.
type Monitor struct {
	Name string
	Baud int

	// ResetPulse overrides the package default when positive.
	ResetPulse time.Duration

	port   Port
	logger *slog.Logger

	wmu    sync.Mutex
	closed bool
}

// Open connects to the named port with a real serial port.
func Open(name string, baud int, logger *slog.Logger) (*Monitor, error) {
	return OpenWith(OpenSerial, name, baud, logger)
}

// OpenWith connects using open.
func OpenWith(open OpenFunc, name string, baud int, logger *slog.Logger) (*Monitor, error) {
	if name == "" {
		return nil, errors.New("monitor: no port given")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("monitor: invalid baud rate %d", baud)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p, err := open(name, baud)
	if err != nil {
		return nil, fmt.Errorf("monitor: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(pollInterval); err != nil {
		p.Close()
		return nil, fmt.Errorf("monitor: %s: %w", name, err)
	}
	logger.Info("serial port opened", "port", name, "baud", baud)
	return &Monitor{Name: name, Baud: baud, port: p, logger: logger}, nil
}

// Lines reads from the board until ctx is done, the port fails or Close is
// called. Each complete line is sent without its line ending; a trailing
// partial line is flushed when reading stops. The channel is closed when
// reading stops; the returned wait function blocks until then and reports
// a read failure, if any.
func (m *Monitor) Lines(ctx context.Context) (<-chan string, func() error) {
	out := make(chan string, 64)
	var (
		once    sync.Once
		done    = make(chan struct{})
		readErr error
	)
	go func() {
		defer close(done)
		defer close(out)
		var pending bytes.Buffer
		buf := make([]byte, 256)
		emit := func(line string) bool {
			select {
			case out <- strings.TrimRight(line, "\r"):
				return true
			case <-ctx.Done():
				return false
			}
		}
		for ctx.Err() == nil {
			n, err := m.port.Read(buf)
			pending.Write(buf[:n])
			for {
				i := bytes.IndexByte(pending.Bytes(), '\n')
				if i < 0 {
					break
				}
				line := string(pending.Next(i + 1))
				if !emit(line[:len(line)-1]) {
					return
				}
			}
			if err != nil {
				if pending.Len() > 0 {
					emit(pending.String())
				}
				if !errors.Is(err, io.EOF) && !m.isClosed() {
					readErr = fmt.Errorf("monitor: read %s: %w", m.Name, err)
					m.logger.Error("serial read failed", "port", m.Name, "err", err)
				}
				return
			}
		}
	}()
	wait := func() error {
		once.Do(func() { <-done })
		return readErr
	}
	return out, wait
}

// Send writes text to the board followed by a newline.
func (m *Monitor) Send(text string) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(m.port, text+"\n"); err != nil {
		return fmt.Errorf("monitor: write %s: %w", m.Name, err)
	}
	m.logger.Debug("serial sent", "port", m.Name, "bytes", len(text)+1)
	return nil
}

// Reset restarts the board by holding DTR low for the reset pulse.
func (m *Monitor) Reset(ctx context.Context) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	if m.closed {
		return ErrClosed
	}
	pulse := m.ResetPulse
	if pulse <= 0 {
		pulse = ResetPulse
	}
	if err := m.port.SetDTR(false); err != nil {
		return fmt.Errorf("monitor: reset %s: %w", m.Name, err)
	}
	t := time.NewTimer(pulse)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	if err := m.port.SetDTR(true); err != nil {
		return fmt.Errorf("monitor: reset %s: %w", m.Name, err)
	}
	m.logger.Info("board reset", "port", m.Name)
	return ctx.Err()
}

// Close releases the port. Closing twice is a no-op.
func (m *Monitor) Close() error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("serial port closed", "port", m.Name)
	return m.port.Close()
}

func (m *Monitor) isClosed() bool {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	return m.closed
}
