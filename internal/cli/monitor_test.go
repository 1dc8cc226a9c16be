package cli

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/blockstudio/pkg/monitor"
)

// echoBoard prints its boot text, then ends the session once it has
// received a line.
type echoBoard struct {
	mu       sync.Mutex
	boot     string
	received bytes.Buffer
	dtr      []bool
	got      chan struct{}
	once     sync.Once
}

func newEchoBoard(boot string) *echoBoard {
	return &echoBoard{boot: boot, got: make(chan struct{})}
}

func (b *echoBoard) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.boot != "" {
		n := copy(p, b.boot)
		b.boot = b.boot[n:]
		b.mu.Unlock()
		return n, nil
	}
	b.mu.Unlock()
	<-b.got
	return 0, io.EOF
}

func (b *echoBoard) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.received.Write(p)
	if bytes.HasSuffix(p, []byte("\n")) {
		b.once.Do(func() { close(b.got) })
	}
	return n, err
}

func (b *echoBoard) Close() error {
	b.once.Do(func() { close(b.got) })
	return nil
}

func (b *echoBoard) SetDTR(dtr bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dtr = append(b.dtr, dtr)
	return nil
}

func (b *echoBoard) SetReadTimeout(time.Duration) error { return nil }

type opened struct {
	name string
	baud int
}

func fakePorts(t *testing.T, board *echoBoard) *opened {
	t.Helper()
	o := &opened{}
	orig := openPort
	openPort = func(name string, baud int) (monitor.Port, error) {
		o.name, o.baud = name, baud
		return board, nil
	}
	t.Cleanup(func() { openPort = orig })
	return o
}

func runCLIWithInput(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(in))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMonitorPrintsAndSends(t *testing.T) {
	board := newEchoBoard("ready\r\ncount=1\n")
	o := fakePorts(t, board)
	dir := t.TempDir()

	out, err := runCLIWithInput(t, "blink\n", "--config", writeConfig(t, dir, "/dev/ttyACM0"), "monitor", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "connected to /dev/ttyACM0 at 9600 baud")
	assert.Contains(t, out, "ready\ncount=1\n")
	assert.Equal(t, opened{name: "/dev/ttyACM0", baud: 9600}, *o)

	board.mu.Lock()
	defer board.mu.Unlock()
	assert.Equal(t, "blink\n", board.received.String())
	assert.Equal(t, []bool{false, true}, board.dtr)
}

func TestMonitorFlagsOverrideConfig(t *testing.T) {
	board := newEchoBoard("")
	o := fakePorts(t, board)
	dir := t.TempDir()

	_, err := runCLIWithInput(t, "x\n", "--config", writeConfig(t, dir, "/dev/ttyACM0"), "monitor", "-p", "COM7", "-b", "115200")
	require.NoError(t, err)
	assert.Equal(t, opened{name: "COM7", baud: 115200}, *o)
}

func TestMonitorWithoutPort(t *testing.T) {
	fakePorts(t, newEchoBoard(""))
	dir := t.TempDir()

	_, err := runCLIWithInput(t, "", "--config", writeConfig(t, dir, ""), "monitor")
	assert.ErrorContains(t, err, "no port given")
}

func TestMonitorListPorts(t *testing.T) {
	f := &fakeCLI{stdout: `{"detected_ports":[
		{"matching_boards":[{"name":"Arduino Uno","fqbn":"arduino:avr:uno"}],"port":{"address":"/dev/ttyACM0","protocol":"serial","protocol_label":"Serial Port (USB)"}},
		{"port":{"address":"/dev/ttyS0","protocol":"serial","protocol_label":"Serial Port"}}]}`}
	fakeRunners(t, f)
	dir := t.TempDir()

	out, err := runCLI(t, "--config", writeConfig(t, dir, ""), "monitor", "--list")
	require.NoError(t, err)
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"board", "list", "--format", "json"}, f.calls[0])
	assert.Contains(t, out, "/dev/ttyACM0")
	assert.Contains(t, out, "Arduino Uno (arduino:avr:uno)")
	assert.Contains(t, out, "/dev/ttyS0")
}

func TestMonitorListNoPorts(t *testing.T) {
	fakeRunners(t, &fakeCLI{stdout: `{"detected_ports":[]}`})
	dir := t.TempDir()

	out, err := runCLI(t, "--config", writeConfig(t, dir, ""), "monitor", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "no ports found")
}

func TestMonitorListFallsBackToSystemPorts(t *testing.T) {
	fakeRunners(t, &fakeCLI{failOn: "board"})
	orig := systemPorts
	systemPorts = func() ([]string, error) { return []string{"/dev/ttyUSB3"}, nil }
	t.Cleanup(func() { systemPorts = orig })
	dir := t.TempDir()

	out, err := runCLI(t, "--config", writeConfig(t, dir, ""), "monitor", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "showing system serial ports")
	assert.Contains(t, out, "/dev/ttyUSB3")
}
