package orders

type Status string

const (
	StatusNew       Status = "NEW"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
)

var validNext = map[Status]map[Status]bool{
	StatusNew:       {StatusConfirmed: true, StatusRejected: true},
	StatusConfirmed: {},
	StatusRejected:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

// Target is the status an action moves to; delete has none.
func (a Action) Target() (Status, bool) {
	switch a {
	case ActionConfirm:
		return StatusConfirmed, true
	case ActionReject:
		return StatusRejected, true
	}
	return "", false
}

// Actions lists what the owner may do with an order in status s.
func Actions(s Status) []Action {
	switch {
	case s == StatusNew:
		return []Action{ActionConfirm, ActionReject}
	case s.Terminal():
		return []Action{ActionDelete}
	}
	return nil
}
