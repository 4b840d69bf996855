package punch

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeviceSID = "dev_chain0000001"

func buildChain(t *testing.T, n int) []*PunchRecord {
	t.Helper()

	records := make([]*PunchRecord, 0, n)
	prevDigest := ChainGenesis
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		punchType := PunchTypeCheckIn
		if i%2 == 1 {
			punchType = PunchTypeCheckOut
		}

		raw, err := NewRawPunch("emp-42", base.Add(time.Duration(i)*time.Hour), punchType, MethodFingerprint, 85, nil, nil, nil)
		require.NoError(t, err)

		record, err := NewPunchRecord(fmt.Sprintf("uuid-%d", i), 1, 9, testDeviceSID, raw)
		require.NoError(t, err)
		require.NoError(t, record.ResolveEmployee(42))
		require.NoError(t, record.AppendToChain(uint64(i+1), prevDigest))

		prevDigest = record.Digest()
		records = append(records, record)
	}

	return records
}

func TestComputeDigestV1_Deterministic(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	d1 := ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 85, 1, ChainGenesis)
	d2 := ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 85, 1, ChainGenesis)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestComputeDigestV1_SensitiveToEveryField(t *testing.T) {
	at := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	base := ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 85, 1, ChainGenesis)

	variants := []string{
		ComputeDigestV1("dev_other0000001", "emp-42", 42, at, PunchTypeCheckIn, 85, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-43", 42, at, PunchTypeCheckIn, 85, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 43, at, PunchTypeCheckIn, 85, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 42, at.Add(time.Second), PunchTypeCheckIn, 85, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckOut, 85, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 86, 1, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 85, 2, ChainGenesis),
		ComputeDigestV1(testDeviceSID, "emp-42", 42, at, PunchTypeCheckIn, 85, 1, "other"),
	}

	for i, v := range variants {
		assert.NotEqual(t, base, v, "variant %d should change the digest", i)
	}
}

func TestVerifyChain_Intact(t *testing.T) {
	records := buildChain(t, 5)

	result := VerifyChain(testDeviceSID, ChainGenesis, records)

	assert.False(t, result.Corrupt)
	assert.Equal(t, uint64(5), result.Verified)
}

func TestVerifyChain_Empty(t *testing.T) {
	result := VerifyChain(testDeviceSID, ChainGenesis, nil)

	assert.False(t, result.Corrupt)
	assert.Equal(t, uint64(0), result.Verified)
}

func TestVerifyChain_DetectsTamperedField(t *testing.T) {
	records := buildChain(t, 5)
	victim := records[2]

	// Reconstruct entry 3 with an inflated quality score but the original
	// digest, simulating a direct row mutation.
	tampered, err := ReconstructPunchRecord(
		3, victim.UUID(), victim.TenantID(), victim.DeviceID(), victim.DeviceSID(),
		victim.DeviceUserID(), victim.EmployeeID(), victim.PunchTime(), victim.Type(),
		victim.Method(), 99, nil, nil, nil,
		victim.Status(), nil, nil, nil,
		victim.SequenceNo(), victim.PrevDigest(), victim.Digest(), victim.DigestVersion(),
		1, victim.CreatedAt(), victim.UpdatedAt(),
	)
	require.NoError(t, err)
	records[2] = tampered

	result := VerifyChain(testDeviceSID, ChainGenesis, records)

	assert.True(t, result.Corrupt)
	assert.Equal(t, uint64(3), result.FirstCorruptSeq)
	assert.Equal(t, uint64(2), result.Verified)
	assert.Equal(t, "digest mismatch", result.Reason)
}

func TestVerifyChain_DetectsSequenceGap(t *testing.T) {
	records := buildChain(t, 5)
	gapped := append(records[:2], records[3:]...)

	result := VerifyChain(testDeviceSID, ChainGenesis, gapped)

	assert.True(t, result.Corrupt)
	assert.Equal(t, uint64(4), result.FirstCorruptSeq)
}

func TestVerifyChain_DetectsBrokenLink(t *testing.T) {
	records := buildChain(t, 3)

	result := VerifyChain(testDeviceSID, "not-the-genesis", records)

	assert.True(t, result.Corrupt)
	assert.Equal(t, uint64(1), result.FirstCorruptSeq)
	assert.Equal(t, "previous digest mismatch", result.Reason)
}

func TestVerifyChain_SegmentFromMidChain(t *testing.T) {
	records := buildChain(t, 6)

	// Verify entries 4..6 using entry 3's digest as the anchor.
	result := VerifyChain(testDeviceSID, records[2].Digest(), records[3:])

	assert.False(t, result.Corrupt)
	assert.Equal(t, uint64(3), result.Verified)
}
