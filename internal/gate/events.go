package gate

// Event is a keypad input delivered to the state machine. Events arriving
// while the machine is not accepting input are dropped at the boundary.
type Event interface {
	isEvent()
}

// DigitEvent carries one '0'-'9' keypress.
type DigitEvent struct {
	Digit byte
}

// DeleteEvent removes the most recent digit.
type DeleteEvent struct{}

// SubmitEvent asks the machine to validate the buffered PIN.
type SubmitEvent struct{}

func (DigitEvent) isEvent()  {}
func (DeleteEvent) isEvent() {}
func (SubmitEvent) isEvent() {}

// EventForKey maps a terminal key name to a keypad event. Key names follow
// the conventions of the TUI layer ("backspace", "enter", single runes).
func EventForKey(key string) (Event, bool) {
	switch key {
	case "backspace", "delete":
		return DeleteEvent{}, true
	case "enter":
		return SubmitEvent{}, true
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return DigitEvent{Digit: key[0]}, true
	}
	return nil, false
}
