package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boardListV1 = `{
  "detected_ports": [
    {
      "matching_boards": [{"name": "Arduino Uno", "fqbn": "arduino:avr:uno"}],
      "port": {"address": "/dev/ttyACM0", "label": "/dev/ttyACM0", "protocol": "serial", "protocol_label": "Serial Port (USB)"}
    },
    {
      "port": {"address": "/dev/ttyS0", "label": "/dev/ttyS0", "protocol": "serial", "protocol_label": "Serial Port"}
    }
  ]
}`

const boardListV0 = `[
  {"port": {"address": "COM3", "label": "COM3", "protocol": "serial"}}
]`

func listing(stdout string, err error) RunFunc {
	return func(ctx context.Context, name string, args ...string) (Output, error) {
		return Output{Stdout: stdout}, err
	}
}

func TestPorts(t *testing.T) {
	var got []string
	r := NewRunner("", "", "", nil).WithRunFunc(func(ctx context.Context, name string, args ...string) (Output, error) {
		got = args
		return Output{Stdout: boardListV1}, nil
	})

	ports, err := r.Ports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"board", "list", "--format", "json"}, got)
	assert.Equal(t, []BoardPort{
		{Address: "/dev/ttyACM0", Protocol: "serial", Label: "Serial Port (USB)", Board: "Arduino Uno", FQBN: "arduino:avr:uno"},
		{Address: "/dev/ttyS0", Protocol: "serial", Label: "Serial Port"},
	}, ports)
}

func TestPortsOlderListing(t *testing.T) {
	r := NewRunner("", "", "", nil).WithRunFunc(listing(boardListV0, nil))
	ports, err := r.Ports(context.Background())
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "COM3", ports[0].Address)
	assert.Equal(t, "COM3", ports[0].Label)
}

func TestPortsEmptyListing(t *testing.T) {
	for _, out := range []string{"", "  \n", `{"detected_ports": []}`, "[]"} {
		r := NewRunner("", "", "", nil).WithRunFunc(listing(out, nil))
		ports, err := r.Ports(context.Background())
		require.NoError(t, err, out)
		assert.Empty(t, ports, out)
	}
}

func TestPortsErrors(t *testing.T) {
	r := NewRunner("", "", "", nil).WithRunFunc(listing("", errors.New("exit status 1")))
	_, err := r.Ports(context.Background())
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "board list", se.Step)

	r = NewRunner("", "", "", nil).WithRunFunc(listing("No boards found.", nil))
	_, err = r.Ports(context.Background())
	assert.ErrorContains(t, err, "parse board list")
}
