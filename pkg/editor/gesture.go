package editor

import (
	"fmt"

	"github.com/chazu/blockstudio/pkg/geom"
	"github.com/chazu/blockstudio/pkg/graph"
	"github.com/chazu/blockstudio/pkg/snap"
)

// State is the phase of the current pointer gesture.
type State int

const (
	Idle State = iota
	Grabbed
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Grabbed:
		return "grabbed"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type gesture struct {
	state     State
	block     graph.BlockID
	grabPoint geom.Vec
	fromTop   bool
	origin    map[graph.BlockID]geom.Vec // scene positions at grab time
	candidate snap.Candidate
}

// Outcome reports what a release committed.
type Outcome struct {
	Block     graph.BlockID  `json:"block"`
	Candidate snap.Candidate `json:"candidate"`
	// FromTop records whether the block was grabbed in its upper half.
	FromTop bool `json:"from_top"`
}

// Snapped reports whether the release connected the block to a target.
func (o Outcome) Snapped() bool {
	return o.Candidate.Valid()
}

// State returns the current gesture phase.
func (s *Session) State() State {
	return s.gesture.state
}

// GrabbedFromTop reports whether the current gesture grabbed its block in
// the block's upper half.
func (s *Session) GrabbedFromTop() bool {
	return s.gesture.state != Idle && s.gesture.fromTop
}

// Highlight returns the candidate that would be committed on release, if any.
func (s *Session) Highlight() snap.Candidate {
	if s.gesture.state == Idle {
		return snap.Candidate{}
	}
	return s.gesture.candidate
}

// BeginGrab starts a gesture on a block at the scene point p. Only
// independently movable blocks can be grabbed. The block's whole connected
// sub-graph is captured and moves rigidly with it.
func (s *Session) BeginGrab(id graph.BlockID, p geom.Vec) error {
	if s.gesture.state != Idle {
		return fmt.Errorf("%w: grab while %s", ErrGestureState, s.gesture.state)
	}
	b, err := s.lookup(id)
	if err != nil {
		return err
	}
	if !b.Movable {
		return fmt.Errorf("%w: %d is inside container %d", ErrNotDraggable, id, b.Parent)
	}

	r := s.g.SceneRect(id)
	origin := make(map[graph.BlockID]geom.Vec)
	for cid := range s.g.Connected(id) {
		origin[cid] = s.g.ScenePos(cid)
	}
	s.gesture = gesture{
		state:     Grabbed,
		block:     id,
		grabPoint: p,
		fromTop:   p.Y < r.Top()+r.Height()/2,
		origin:    origin,
	}
	return nil
}

// Drag moves the grabbed sub-graph so the grab point follows p, then
// refreshes the highlighted candidate. It makes no structural change.
func (s *Session) Drag(id graph.BlockID, p geom.Vec) error {
	if err := s.inGesture(id); err != nil {
		return err
	}
	s.moveTo(p.Sub(s.gesture.grabPoint))
	s.gesture.state = Dragging
	s.gesture.candidate = s.matcher.Find(s.g, id)
	return nil
}

// Release ends the gesture and commits the pending candidate. Without a
// candidate the block stays where it was dropped.
func (s *Session) Release(id graph.BlockID) (Outcome, error) {
	if err := s.inGesture(id); err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Block:     id,
		Candidate: s.matcher.Find(s.g, id),
		FromTop:   s.gesture.fromTop,
	}
	s.gesture = gesture{}
	if out.Candidate.Valid() {
		s.commit(id, out.Candidate)
	}
	s.check()
	return out, nil
}

// Cancel ends the gesture and puts every captured block back where it was
// grabbed.
func (s *Session) Cancel() {
	if s.gesture.state == Idle {
		return
	}
	s.moveTo(geom.Vec{})
	s.gesture = gesture{}
	s.check()
}

// DropAt moves a block so its top-left corner lands on the scene point p and
// releases it there, as a grab-drag-release at the block's anchor would.
func (s *Session) DropAt(id graph.BlockID, p geom.Vec) (Outcome, error) {
	if _, err := s.lookup(id); err != nil {
		return Outcome{}, err
	}
	anchor := s.g.ScenePos(id)
	if err := s.BeginGrab(id, anchor); err != nil {
		return Outcome{}, err
	}
	if err := s.Drag(id, p); err != nil {
		s.Cancel()
		return Outcome{}, err
	}
	return s.Release(id)
}

func (s *Session) inGesture(id graph.BlockID) error {
	if s.gesture.state == Idle {
		return fmt.Errorf("%w: no block is grabbed", ErrGestureState)
	}
	if s.gesture.block != id {
		return fmt.Errorf("%w: block %d is grabbed, not %d", ErrGestureState, s.gesture.block, id)
	}
	return nil
}

// moveTo places every captured block at its grab-time scene position plus
// delta, expressed in its own parent's frame.
func (s *Session) moveTo(delta geom.Vec) {
	target := func(id graph.BlockID) geom.Vec {
		if o, ok := s.gesture.origin[id]; ok {
			return o.Add(delta)
		}
		return s.g.ScenePos(id)
	}
	for id := range s.gesture.origin {
		b := s.g.Get(id)
		if b == nil {
			continue
		}
		p := target(id)
		if b.Parent != graph.NoBlock {
			p = p.Sub(target(b.Parent))
		}
		b.Pos = p
	}
}
