package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort replays chunks on Read, then reports end (io.EOF unless set).
// When holdUntilWrite is set, it waits for the first Write before ending.
type fakePort struct {
	mu      sync.Mutex
	chunks  []string
	end     error
	written bytes.Buffer
	dtr     []bool
	closed  bool
	timeout time.Duration

	holdUntilWrite bool
	wrote          chan struct{}
}

func newFakePort(chunks ...string) *fakePort {
	return &fakePort{chunks: chunks, end: io.EOF, wrote: make(chan struct{})}
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		n := copy(p, f.chunks[0])
		f.chunks = f.chunks[1:]
		f.mu.Unlock()
		return n, nil
	}
	hold := f.holdUntilWrite
	f.mu.Unlock()
	if hold {
		<-f.wrote
	}
	return 0, f.end
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.written.Len() == 0 {
		close(f.wrote)
	}
	return f.written.Write(p)
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePort) SetDTR(dtr bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dtr = append(f.dtr, dtr)
	return nil
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.timeout = t
	return nil
}

func openFake(f *fakePort) OpenFunc {
	return func(name string, baud int) (Port, error) { return f, nil }
}

func collect(ch <-chan string) []string {
	var lines []string
	for l := range ch {
		lines = append(lines, l)
	}
	return lines
}

func TestOpenValidates(t *testing.T) {
	f := newFakePort()
	_, err := OpenWith(openFake(f), "", 9600, nil)
	assert.Error(t, err)
	_, err = OpenWith(openFake(f), "/dev/ttyUSB0", 0, nil)
	assert.Error(t, err)

	failing := func(name string, baud int) (Port, error) { return nil, errors.New("port busy") }
	_, err = OpenWith(failing, "/dev/ttyUSB0", 9600, nil)
	assert.ErrorContains(t, err, "port busy")

	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)
	assert.Equal(t, pollInterval, f.timeout)
	assert.Equal(t, 9600, m.Baud)
}

func TestLinesSplitsChunks(t *testing.T) {
	f := newFakePort("tem", "p=21\r\nte", "mp=22\n", "partial")
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)

	lines, wait := m.Lines(context.Background())
	assert.Equal(t, []string{"temp=21", "temp=22", "partial"}, collect(lines))
	assert.NoError(t, wait())
}

func TestLinesReportsReadFailure(t *testing.T) {
	f := newFakePort("ok\n")
	f.end = errors.New("device unplugged")
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)

	lines, wait := m.Lines(context.Background())
	assert.Equal(t, []string{"ok"}, collect(lines))
	assert.ErrorContains(t, wait(), "device unplugged")
}

func TestLinesStopsOnCancel(t *testing.T) {
	f := newFakePort()
	f.end = nil // every read times out with nothing
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	lines, wait := m.Lines(ctx)
	cancel()
	assert.Empty(t, collect(lines))
	assert.NoError(t, wait())
}

func TestSendAppendsNewline(t *testing.T) {
	f := newFakePort()
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)

	require.NoError(t, m.Send("led on"))
	require.NoError(t, m.Send("led off"))
	assert.Equal(t, "led on\nled off\n", f.written.String())
}

func TestResetPulsesDTR(t *testing.T) {
	f := newFakePort()
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)
	m.ResetPulse = time.Millisecond

	require.NoError(t, m.Reset(context.Background()))
	assert.Equal(t, []bool{false, true}, f.dtr)
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFakePort()
	m, err := OpenWith(openFake(f), "/dev/ttyUSB0", 9600, nil)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, f.closed)
	assert.ErrorIs(t, m.Send("x"), ErrClosed)
	assert.ErrorIs(t, m.Reset(context.Background()), ErrClosed)
}
