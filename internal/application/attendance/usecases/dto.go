package usecases

import (
	"time"

	"veritime/internal/domain/attendance"
)

// AttendanceDayDTO is the wire representation of a derived attendance day.
type AttendanceDayDTO struct {
	ID                uint       `json:"id"`
	EmployeeID        uint       `json:"employee_id"`
	Date              string     `json:"date"`
	CheckInAt         *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt        *time.Time `json:"check_out_at,omitempty"`
	WorkedHours       float64    `json:"worked_hours"`
	OvertimeHours     float64    `json:"overtime_hours"`
	Status            string     `json:"status"`
	ReviewNote        *string    `json:"review_note,omitempty"`
	Authorized        bool       `json:"authorized"`
	AuthorizationNote *string    `json:"authorization_note,omitempty"`
	Weekend           bool       `json:"weekend"`
}

func toAttendanceDayDTO(day *attendance.AttendanceDay) *AttendanceDayDTO {
	return &AttendanceDayDTO{
		ID:                day.ID(),
		EmployeeID:        day.EmployeeID(),
		Date:              day.Date(),
		CheckInAt:         day.CheckInAt(),
		CheckOutAt:        day.CheckOutAt(),
		WorkedHours:       day.WorkedHours(),
		OvertimeHours:     day.OvertimeHours(),
		Status:            day.Status().String(),
		ReviewNote:        day.ReviewNote(),
		Authorized:        day.Authorized(),
		AuthorizationNote: day.AuthorizationNote(),
		Weekend:           day.IsWeekend(),
	}
}

func toAttendanceDayDTOs(days []*attendance.AttendanceDay) []*AttendanceDayDTO {
	dtos := make([]*AttendanceDayDTO, 0, len(days))
	for _, d := range days {
		dtos = append(dtos, toAttendanceDayDTO(d))
	}
	return dtos
}
