package main

import (
	"context"
	"errors"

	"github.com/chazu/blockstudio/pkg/monitor"
	"github.com/chazu/blockstudio/pkg/toolchain"
)

// maxMonitorLines caps how much unread serial output is kept.
const maxMonitorLines = 1000

// MonitorStatus describes the serial connection.
type MonitorStatus struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port,omitempty"`
	Baud      int    `json:"baud,omitempty"`
	Error     string `json:"error,omitempty"`
}

// serialConn is the open monitor and what it has received since the last
// MonitorRead.
type serialConn struct {
	mon    *monitor.Monitor
	cancel context.CancelFunc
	done   chan struct{}
	lines  []string
	err    error
}

// Ports lists the ports arduino-cli can see, with any recognised boards.
func (a *App) Ports() ([]toolchain.BoardPort, error) {
	a.mu.Lock()
	fqbn := a.profile.FQBN
	a.mu.Unlock()
	return a.newRunner(fqbn, "").Ports(a.ctx)
}

// Connect opens the serial monitor on port, or the configured port when
// port is empty, at the board's baud rate. An open connection is closed
// first.
func (a *App) Connect(port string) (MonitorStatus, error) {
	if port == "" {
		port = a.cfg.Port
	}
	a.Disconnect()

	a.mu.Lock()
	baud := a.profile.Baud
	a.mu.Unlock()

	m, err := monitor.OpenWith(a.openPort, port, baud, a.logger)
	if err != nil {
		return MonitorStatus{Error: err.Error()}, err
	}
	ctx, cancel := context.WithCancel(a.ctx)
	conn := &serialConn{mon: m, cancel: cancel, done: make(chan struct{})}

	lines, wait := m.Lines(ctx)
	go func() {
		defer close(conn.done)
		for l := range lines {
			a.serialMu.Lock()
			conn.lines = append(conn.lines, l)
			if over := len(conn.lines) - maxMonitorLines; over > 0 {
				conn.lines = conn.lines[over:]
			}
			a.serialMu.Unlock()
		}
		err := wait()
		a.serialMu.Lock()
		conn.err = err
		a.serialMu.Unlock()
	}()

	a.serialMu.Lock()
	a.serial = conn
	a.serialMu.Unlock()
	return MonitorStatus{Connected: true, Port: port, Baud: baud}, nil
}

// MonitorRead returns the lines received since the last call.
func (a *App) MonitorRead() ([]string, error) {
	a.serialMu.Lock()
	defer a.serialMu.Unlock()
	if a.serial == nil {
		return []string{}, errNotConnected
	}
	lines := a.serial.lines
	a.serial.lines = nil
	if lines == nil {
		lines = []string{}
	}
	return lines, a.serial.err
}

// MonitorSend writes one line to the board.
func (a *App) MonitorSend(text string) error {
	conn := a.conn()
	if conn == nil {
		return errNotConnected
	}
	return conn.mon.Send(text)
}

// ResetBoard restarts the connected board through DTR.
func (a *App) ResetBoard() error {
	conn := a.conn()
	if conn == nil {
		return errNotConnected
	}
	return conn.mon.Reset(a.ctx)
}

// Disconnect closes the serial monitor. It is a no-op when none is open.
func (a *App) Disconnect() MonitorStatus {
	a.serialMu.Lock()
	conn := a.serial
	a.serial = nil
	a.serialMu.Unlock()
	if conn == nil {
		return MonitorStatus{}
	}
	conn.cancel()
	if err := conn.mon.Close(); err != nil {
		a.logger.Warn("closing serial port", "port", conn.mon.Name, "err", err)
	}
	<-conn.done
	return MonitorStatus{}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.Disconnect()
}

func (a *App) conn() *serialConn {
	a.serialMu.Lock()
	defer a.serialMu.Unlock()
	return a.serial
}

var errNotConnected = errors.New("serial monitor is not connected")
