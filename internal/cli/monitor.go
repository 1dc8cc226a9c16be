package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chazu/blockstudio/pkg/monitor"
)

// openPort opens the serial port for monitor and systemPorts lists ports
// when arduino-cli cannot. Tests replace both.
var (
	openPort    monitor.OpenFunc = monitor.OpenSerial
	systemPorts                  = monitor.Ports
)

func newMonitorCmd(e *env) *cobra.Command {
	var (
		port  string
		baud  int
		reset bool
		list  bool
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print what the board sends and send it lines typed on stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return e.listPorts(cmd.Context())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return e.monitor(ctx, cmd.InOrStdin(), port, baud, reset)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port of the board (overrides config)")
	cmd.Flags().IntVarP(&baud, "baud", "b", 0, "baud rate (default from the board profile)")
	cmd.Flags().BoolVar(&reset, "reset", false, "reset the board through DTR after connecting")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list ports and exit")
	return cmd
}

func (e *env) monitor(ctx context.Context, in io.Reader, port string, baud int, reset bool) error {
	if port == "" {
		port = e.cfg.Port
	}
	if baud <= 0 {
		p, err := e.cfg.Profile()
		if err != nil {
			return err
		}
		baud = p.Baud
	}

	m, err := monitor.OpenWith(openPort, port, baud, e.logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if reset {
		if err := m.Reset(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintln(e.out, mutedStyle.Render(fmt.Sprintf("connected to %s at %d baud", port, baud)))

	lines, wait := m.Lines(ctx)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if err := m.Send(sc.Text()); err != nil {
				e.logger.Warn("serial send failed", "port", port, "err", err)
				return
			}
		}
	}()
	for l := range lines {
		fmt.Fprintln(e.out, l)
	}
	return wait()
}

func (e *env) listPorts(ctx context.Context) error {
	p, err := e.cfg.Profile()
	if err != nil {
		return err
	}
	ports, err := newRunner(e.cfg, p.FQBN, "", e.logger).Ports(ctx)
	if err != nil {
		e.logger.Warn("board list failed", "err", err)
		names, serr := systemPorts()
		if serr != nil {
			return err
		}
		warnf(e.out, "arduino-cli could not list boards; showing system serial ports")
		for _, n := range names {
			fmt.Fprintln(e.out, n)
		}
		return nil
	}
	if len(ports) == 0 {
		warnf(e.out, "no ports found")
		return nil
	}

	addrCol := lipgloss.NewStyle().Width(20)
	labelCol := lipgloss.NewStyle().Width(22)
	fmt.Fprintln(e.out, headerStyle.Render(addrCol.Render("PORT")+labelCol.Render("TYPE")+"BOARD"))
	for _, bp := range ports {
		board := mutedStyle.Render("unknown")
		if bp.Board != "" {
			board = fmt.Sprintf("%s (%s)", bp.Board, bp.FQBN)
		}
		fmt.Fprintln(e.out, addrCol.Render(bp.Address)+labelCol.Render(bp.Label)+board)
	}
	return nil
}
