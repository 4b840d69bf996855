package attendance

import "fmt"

// DayStatus is the lifecycle state of an attendance day.
type DayStatus string

const (
	// DayStatusOpen means a check-in was recorded and the day awaits check-out.
	DayStatusOpen DayStatus = "open"
	// DayStatusClosed means both check-in and check-out are present.
	DayStatusClosed DayStatus = "closed"
	// DayStatusIncomplete means a check-out arrived without a prior check-in.
	DayStatusIncomplete DayStatus = "incomplete"
	// DayStatusFlaggedForReview means a correction candidate was seen, such
	// as a second check-in while the day was already open.
	DayStatusFlaggedForReview DayStatus = "flagged_for_review"
)

func NewDayStatus(value string) (DayStatus, error) {
	ds := DayStatus(value)

	switch ds {
	case DayStatusOpen, DayStatusClosed, DayStatusIncomplete, DayStatusFlaggedForReview:
		return ds, nil
	default:
		return "", fmt.Errorf("invalid attendance day status: %s", value)
	}
}

func (ds DayStatus) String() string {
	return string(ds)
}

func (ds DayStatus) IsOpen() bool {
	return ds == DayStatusOpen || ds == DayStatusFlaggedForReview
}

func (ds DayStatus) IsClosed() bool {
	return ds == DayStatusClosed
}

func (ds DayStatus) IsIncomplete() bool {
	return ds == DayStatusIncomplete
}
