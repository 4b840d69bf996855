package punch

import "fmt"

// PunchStatus is the processing state of a persisted punch record.
type PunchStatus string

const (
	// PunchStatusPending is the initial state before the pipeline ran.
	PunchStatusPending PunchStatus = "pending"
	// PunchStatusProcessed means the punch was chained and attendance updated.
	PunchStatusProcessed PunchStatus = "processed"
	// PunchStatusFailed means a transient step failed; eligible for reprocessing.
	PunchStatusFailed PunchStatus = "failed"
	// PunchStatusDuplicate means the punch collided with a recent accepted punch.
	PunchStatusDuplicate PunchStatus = "duplicate"
	// PunchStatusIgnored means the punch was dropped by policy (quality, quota).
	PunchStatusIgnored PunchStatus = "ignored"
)

func NewPunchStatus(value string) (PunchStatus, error) {
	ps := PunchStatus(value)

	switch ps {
	case PunchStatusPending, PunchStatusProcessed, PunchStatusFailed, PunchStatusDuplicate, PunchStatusIgnored:
		return ps, nil
	default:
		return "", fmt.Errorf("invalid punch status: %s", value)
	}
}

func (ps PunchStatus) String() string {
	return string(ps)
}

func (ps PunchStatus) IsTerminal() bool {
	return ps == PunchStatusProcessed || ps == PunchStatusDuplicate || ps == PunchStatusIgnored
}

func (ps PunchStatus) IsRetryable() bool {
	return ps == PunchStatusFailed
}
