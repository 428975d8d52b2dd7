package booking

import "github.com/cockroachdb/errors"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// ParseStatus accepts the lowercase status names used in JSON and query strings.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusRejected:
		return Status(s), nil
	default:
		return "", errors.Newf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusRejected: true},
	StatusConfirmed: {},
	StatusRejected:  {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// StatusFromFlag decodes the is_confirmed column: NULL pending, true confirmed, false rejected.
func StatusFromFlag(flag *bool) Status {
	switch {
	case flag == nil:
		return StatusPending
	case *flag:
		return StatusConfirmed
	default:
		return StatusRejected
	}
}

// Flag encodes s for the is_confirmed column.
func (s Status) Flag() *bool {
	switch s {
	case StatusConfirmed:
		v := true
		return &v
	case StatusRejected:
		v := false
		return &v
	default:
		return nil
	}
}
