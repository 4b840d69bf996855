package punch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// ChainGenesis is the previous-digest sentinel for the first entry of
	// a device chain.
	ChainGenesis = "GENESIS"

	// DigestVersionV1 tags the current digest payload layout.
	DigestVersionV1 = "v1"
)

// ComputeDigestV1 computes the chain digest for one accepted punch. The
// digest is a pure function of the record's immutable fields plus the
// previous entry's digest, so recomputing from genesis detects any later
// mutation.
func ComputeDigestV1(
	deviceSID string,
	deviceUserID string,
	employeeID uint,
	punchTime time.Time,
	punchType PunchType,
	qualityScore int,
	sequenceNo uint64,
	prevDigest string,
) string {
	payload := strings.Join([]string{
		DigestVersionV1,
		deviceSID,
		deviceUserID,
		fmt.Sprintf("%d", employeeID),
		punchTime.UTC().Format(time.RFC3339Nano),
		punchType.String(),
		fmt.Sprintf("%d", qualityScore),
		fmt.Sprintf("%d", sequenceNo),
		prevDigest,
	}, "|")

	hash := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(hash[:])
}

// ChainVerifyResult reports the outcome of verifying a device chain segment.
type ChainVerifyResult struct {
	Verified        uint64
	FirstCorruptSeq uint64
	Corrupt         bool
	Reason          string
}

// VerifyChain recomputes digests for an ordered slice of chained records
// belonging to one device and reports the first corrupt entry, if any.
// The slice must be sorted by sequence number. When the segment does not
// start at sequence 1, the caller passes the digest of the entry preceding
// the segment as prevDigest; for a full-chain verification prevDigest is
// ChainGenesis.
func VerifyChain(deviceSID string, prevDigest string, records []*PunchRecord) ChainVerifyResult {
	expectedPrev := prevDigest
	var verified uint64

	for i, r := range records {
		if r.SequenceNo() == 0 {
			return ChainVerifyResult{
				Verified:        verified,
				FirstCorruptSeq: 0,
				Corrupt:         true,
				Reason:          fmt.Sprintf("record at position %d is not chained", i),
			}
		}
		if i > 0 && r.SequenceNo() != records[i-1].SequenceNo()+1 {
			return ChainVerifyResult{
				Verified:        verified,
				FirstCorruptSeq: r.SequenceNo(),
				Corrupt:         true,
				Reason:          fmt.Sprintf("sequence gap: %d follows %d", r.SequenceNo(), records[i-1].SequenceNo()),
			}
		}
		if r.PrevDigest() != expectedPrev {
			return ChainVerifyResult{
				Verified:        verified,
				FirstCorruptSeq: r.SequenceNo(),
				Corrupt:         true,
				Reason:          "previous digest mismatch",
			}
		}

		var employeeID uint
		if r.EmployeeID() != nil {
			employeeID = *r.EmployeeID()
		}

		recomputed := ComputeDigestV1(
			deviceSID,
			r.DeviceUserID(),
			employeeID,
			r.PunchTime(),
			r.Type(),
			r.QualityScore(),
			r.SequenceNo(),
			r.PrevDigest(),
		)
		if recomputed != r.Digest() {
			return ChainVerifyResult{
				Verified:        verified,
				FirstCorruptSeq: r.SequenceNo(),
				Corrupt:         true,
				Reason:          "digest mismatch",
			}
		}

		expectedPrev = r.Digest()
		verified++
	}

	return ChainVerifyResult{Verified: verified}
}
