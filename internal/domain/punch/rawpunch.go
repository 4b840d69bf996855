package punch

import (
	"encoding/json"
	"fmt"
	"time"
)

// RawPunch is the transient inbound event a device submits. It is validated
// and either turned into a PunchRecord or rejected; it is never persisted
// as-is.
type RawPunch struct {
	deviceUserID string
	punchTime    time.Time
	punchType    PunchType
	method       VerificationMethod
	qualityScore int
	latitude     *float64
	longitude    *float64
	rawPayload   json.RawMessage
}

// NewRawPunch validates and constructs a raw punch event.
func NewRawPunch(
	deviceUserID string,
	punchTime time.Time,
	punchType PunchType,
	method VerificationMethod,
	qualityScore int,
	latitude, longitude *float64,
	rawPayload json.RawMessage,
) (*RawPunch, error) {
	if deviceUserID == "" {
		return nil, fmt.Errorf("device user ID is required")
	}
	if punchTime.IsZero() {
		return nil, fmt.Errorf("punch time is required")
	}
	if qualityScore < 0 || qualityScore > 100 {
		return nil, fmt.Errorf("quality score must be between 0 and 100, got %d", qualityScore)
	}
	if (latitude == nil) != (longitude == nil) {
		return nil, fmt.Errorf("latitude and longitude must be provided together")
	}
	if latitude != nil {
		if *latitude < -90 || *latitude > 90 {
			return nil, fmt.Errorf("latitude out of range: %f", *latitude)
		}
		if *longitude < -180 || *longitude > 180 {
			return nil, fmt.Errorf("longitude out of range: %f", *longitude)
		}
	}

	return &RawPunch{
		deviceUserID: deviceUserID,
		punchTime:    punchTime.UTC(),
		punchType:    punchType,
		method:       method,
		qualityScore: qualityScore,
		latitude:     latitude,
		longitude:    longitude,
		rawPayload:   rawPayload,
	}, nil
}

// DeviceUserID returns the device-local identifier of the person punching.
func (rp *RawPunch) DeviceUserID() string {
	return rp.deviceUserID
}

// PunchTime returns the punch timestamp in UTC.
func (rp *RawPunch) PunchTime() time.Time {
	return rp.punchTime
}

// Type returns the punch type.
func (rp *RawPunch) Type() PunchType {
	return rp.punchType
}

// Method returns the verification method.
func (rp *RawPunch) Method() VerificationMethod {
	return rp.method
}

// QualityScore returns the 0-100 verification quality score.
func (rp *RawPunch) QualityScore() int {
	return rp.qualityScore
}

// Latitude returns the optional latitude.
func (rp *RawPunch) Latitude() *float64 {
	return rp.latitude
}

// Longitude returns the optional longitude.
func (rp *RawPunch) Longitude() *float64 {
	return rp.longitude
}

// RawPayload returns the device's original payload, if it was captured.
func (rp *RawPunch) RawPayload() json.RawMessage {
	return rp.rawPayload
}
