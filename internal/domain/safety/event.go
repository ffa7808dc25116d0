package safety

import "fmt"

// Event is one input to the safety engine. The set of implementations is
// closed: only the types in this file satisfy it, so a type switch over
// Event can be checked for exhaustiveness.
type Event interface {
	fmt.Stringer

	isEvent()
}

// HeartRate carries a validated BPM reading forwarded by the heart rate filter.
type HeartRate struct {
	BPM int
}

// FallDetected is emitted once per fall episode by the fall detector.
type FallDetected struct{}

// WatchRemoved is the edge-triggered transition to the not-worn state.
type WatchRemoved struct{}

// WatchWornAgain is the edge-triggered transition back to the worn state.
type WatchWornAgain struct{}

// UserIsOk is the user's answer to a confirmation prompt.
type UserIsOk struct{}

// UserNeedsHelp is the user's request for help after a fall prompt.
type UserNeedsHelp struct{}

// PanicPressed is an explicit panic request from the user.
type PanicPressed struct{}

// FallNoResponse is delivered when the fall prompt was left unanswered.
type FallNoResponse struct {
	// ElapsedMs is how long the prompt was shown before giving up.
	ElapsedMs int64
}

// EmergencyCallStarted reports that a call to an emergency contact was placed.
type EmergencyCallStarted struct {
	Contact EmergencyContact
}

func (HeartRate) isEvent()            {}
func (FallDetected) isEvent()         {}
func (WatchRemoved) isEvent()         {}
func (WatchWornAgain) isEvent()       {}
func (UserIsOk) isEvent()             {}
func (UserNeedsHelp) isEvent()        {}
func (PanicPressed) isEvent()         {}
func (FallNoResponse) isEvent()       {}
func (EmergencyCallStarted) isEvent() {}

func (e HeartRate) String() string { return fmt.Sprintf("HeartRate(%d)", e.BPM) }

func (FallDetected) String() string   { return "FallDetected" }
func (WatchRemoved) String() string   { return "WatchRemoved" }
func (WatchWornAgain) String() string { return "WatchWornAgain" }
func (UserIsOk) String() string       { return "UserIsOk" }
func (UserNeedsHelp) String() string  { return "UserNeedsHelp" }
func (PanicPressed) String() string   { return "PanicPressed" }

func (e FallNoResponse) String() string {
	return fmt.Sprintf("FallNoResponse(%dms)", e.ElapsedMs)
}

func (e EmergencyCallStarted) String() string {
	return fmt.Sprintf("EmergencyCallStarted(%s)", e.Contact.Name)
}
