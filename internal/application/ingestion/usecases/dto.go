package usecases

import (
	"time"

	"veritime/internal/domain/attendance"
	"veritime/internal/domain/punch"
)

// PunchRecordDTO is the wire representation of a punch record.
type PunchRecordDTO struct {
	UUID            string     `json:"uuid"`
	DeviceSID       string     `json:"device_sid"`
	DeviceUserID    string     `json:"device_user_id"`
	EmployeeID      *uint      `json:"employee_id,omitempty"`
	PunchTime       time.Time  `json:"punch_time"`
	Type            string     `json:"type"`
	Method          string     `json:"method"`
	QualityScore    int        `json:"quality_score"`
	Status          string     `json:"status"`
	ProcessingError *string    `json:"processing_error,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	SequenceNo      uint64     `json:"sequence_no,omitempty"`
	Digest          string     `json:"digest,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// AttendanceSummaryDTO is the derived day state returned with an accepted
// punch.
type AttendanceSummaryDTO struct {
	Date          string     `json:"date"`
	Status        string     `json:"status"`
	CheckInAt     *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt    *time.Time `json:"check_out_at,omitempty"`
	WorkedHours   float64    `json:"worked_hours"`
	OvertimeHours float64    `json:"overtime_hours"`
}

func toPunchRecordDTO(p *punch.PunchRecord) *PunchRecordDTO {
	return &PunchRecordDTO{
		UUID:            p.UUID(),
		DeviceSID:       p.DeviceSID(),
		DeviceUserID:    p.DeviceUserID(),
		EmployeeID:      p.EmployeeID(),
		PunchTime:       p.PunchTime(),
		Type:            p.Type().String(),
		Method:          p.Method().String(),
		QualityScore:    p.QualityScore(),
		Status:          p.Status().String(),
		ProcessingError: p.ProcessingError(),
		ProcessedAt:     p.ProcessedAt(),
		SequenceNo:      p.SequenceNo(),
		Digest:          p.Digest(),
		CreatedAt:       p.CreatedAt(),
	}
}

func toPunchRecordDTOs(records []*punch.PunchRecord) []*PunchRecordDTO {
	dtos := make([]*PunchRecordDTO, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, toPunchRecordDTO(r))
	}
	return dtos
}

func toAttendanceSummaryDTO(day *attendance.AttendanceDay) *AttendanceSummaryDTO {
	return &AttendanceSummaryDTO{
		Date:          day.Date(),
		Status:        day.Status().String(),
		CheckInAt:     day.CheckInAt(),
		CheckOutAt:    day.CheckOutAt(),
		WorkedHours:   day.WorkedHours(),
		OvertimeHours: day.OvertimeHours(),
	}
}
