package toolchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// BoardPort is a port arduino-cli found, with the board it recognised on it
// when there is one.
type BoardPort struct {
	Address  string `json:"address"`
	Protocol string `json:"protocol"`
	Label    string `json:"label"`
	Board    string `json:"board,omitempty"`
	FQBN     string `json:"fqbn,omitempty"`
}

type detectedPort struct {
	MatchingBoards []struct {
		Name string `json:"name"`
		FQBN string `json:"fqbn"`
	} `json:"matching_boards"`
	Port struct {
		Address       string `json:"address"`
		Label         string `json:"label"`
		Protocol      string `json:"protocol"`
		ProtocolLabel string `json:"protocol_label"`
	} `json:"port"`
}

// PortsArgs returns the arguments of the port listing.
func (r *Runner) PortsArgs() []string {
	return []string{"board", "list", "--format", "json"}
}

// Ports lists the ports arduino-cli can see.
func (r *Runner) Ports(ctx context.Context) ([]BoardPort, error) {
	out, err := r.step(ctx, "board list", r.PortsArgs())
	if err != nil {
		return nil, err
	}
	return parsePorts([]byte(out.Stdout))
}

// parsePorts reads both listing shapes arduino-cli has printed: an object
// with detected_ports (1.x) and a bare array of the same entries (0.x).
func parsePorts(data []byte) ([]BoardPort, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var entries []detectedPort
	if data[0] == '[' {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("toolchain: parse board list: %w", err)
		}
	} else {
		var doc struct {
			DetectedPorts []detectedPort `json:"detected_ports"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("toolchain: parse board list: %w", err)
		}
		entries = doc.DetectedPorts
	}

	ports := make([]BoardPort, 0, len(entries))
	for _, e := range entries {
		if e.Port.Address == "" {
			continue
		}
		p := BoardPort{Address: e.Port.Address, Protocol: e.Port.Protocol, Label: e.Port.ProtocolLabel}
		if p.Label == "" {
			p.Label = e.Port.Label
		}
		if len(e.MatchingBoards) > 0 {
			p.Board = e.MatchingBoards[0].Name
			p.FQBN = e.MatchingBoards[0].FQBN
		}
		ports = append(ports, p)
	}
	return ports, nil
}
