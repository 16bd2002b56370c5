package photoadmin

import (
	"fmt"

	"github.com/pkg/errors"
)

// State is where the capture flow is.
type State int

const (
	Idle State = iota
	Capturing
	Previewing
	Uploading
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Previewing:
		return "previewing"
	case Uploading:
		return "uploading"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event moves the capture flow.
type Event int

const (
	StartCamera Event = iota
	Capture
	PickFile
	Discard
	Upload
	UploadOK
	UploadFailed
	Reset
)

func (e Event) String() string {
	switch e {
	case StartCamera:
		return "start_camera"
	case Capture:
		return "capture"
	case PickFile:
		return "pick_file"
	case Discard:
		return "discard"
	case Upload:
		return "upload"
	case UploadOK:
		return "upload_ok"
	case UploadFailed:
		return "upload_failed"
	case Reset:
		return "reset"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ErrIllegalTransition is returned for an event the current state does not
// accept. The state is left unchanged.
var ErrIllegalTransition = errors.New("illegal capture transition")

// The camera is live only in Capturing and a photo exists only in
// Previewing, Uploading and Failed, so the two never coexist.
var transitions = map[State]map[Event]State{
	Idle: {
		StartCamera: Capturing,
		PickFile:    Previewing,
	},
	Capturing: {
		Capture:  Previewing,
		PickFile: Previewing,
		Discard:  Idle,
	},
	Previewing: {
		StartCamera: Capturing,
		PickFile:    Previewing,
		Discard:     Idle,
		Upload:      Uploading,
	},
	Uploading: {
		UploadOK:     Idle,
		UploadFailed: Failed,
	},
	Failed: {
		StartCamera: Capturing,
		PickFile:    Previewing,
		Discard:     Idle,
		Upload:      Uploading,
	},
}

// Machine is the capture state machine.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Can reports whether e is legal now.
func (m *Machine) Can(e Event) bool {
	if e == Reset {
		return true
	}
	_, ok := transitions[m.state][e]
	return ok
}

// Fire applies e.
func (m *Machine) Fire(e Event) error {
	if e == Reset {
		m.state = Idle
		return nil
	}
	next, ok := transitions[m.state][e]
	if !ok {
		return errors.Wrapf(ErrIllegalTransition, "%s in %s", e, m.state)
	}
	m.state = next
	return nil
}
