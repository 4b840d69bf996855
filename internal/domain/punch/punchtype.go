package punch

import "fmt"

// PunchType is the direction of a punch event.
type PunchType string

const (
	PunchTypeCheckIn  PunchType = "check_in"
	PunchTypeCheckOut PunchType = "check_out"
)

func NewPunchType(value string) (PunchType, error) {
	pt := PunchType(value)

	switch pt {
	case PunchTypeCheckIn, PunchTypeCheckOut:
		return pt, nil
	default:
		return "", fmt.Errorf("invalid punch type: %s", value)
	}
}

func (pt PunchType) String() string {
	return string(pt)
}

func (pt PunchType) IsCheckIn() bool {
	return pt == PunchTypeCheckIn
}

func (pt PunchType) IsCheckOut() bool {
	return pt == PunchTypeCheckOut
}

// VerificationMethod is how the device verified the person punching.
type VerificationMethod string

const (
	MethodFingerprint VerificationMethod = "fingerprint"
	MethodFace        VerificationMethod = "face"
	MethodCard        VerificationMethod = "card"
	MethodPIN         VerificationMethod = "pin"
	MethodPalm        VerificationMethod = "palm"
)

func NewVerificationMethod(value string) (VerificationMethod, error) {
	vm := VerificationMethod(value)

	switch vm {
	case MethodFingerprint, MethodFace, MethodCard, MethodPIN, MethodPalm:
		return vm, nil
	default:
		return "", fmt.Errorf("invalid verification method: %s", value)
	}
}

func (vm VerificationMethod) String() string {
	return string(vm)
}
