package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/curator/core"
)

// Key prefixes for different data types
const (
	seenURLPrefix         = "seenurl:"
	seenFingerprintPrefix = "seenfp:"
	learningPrefix        = "learn:"
	runRecordPrefix       = "runrec:"
	runRecordDatePrefix   = "runrecd:"
)

// makeSeenURLKey generates a key for an admitted normalized URL.
func makeSeenURLKey(url string) []byte {
	return append([]byte(seenURLPrefix), url...)
}

// makeSeenFingerprintKey generates a key for an admitted content fingerprint.
func makeSeenFingerprintKey(fp core.Fingerprint) []byte {
	return append([]byte(seenFingerprintPrefix), fp...)
}

// makeLearningKey generates a key for the learning snapshot of an agent.
func makeLearningKey(agentID string) []byte {
	return append([]byte(learningPrefix), agentID...)
}

// makeRunKey generates a key for a run summary by ID.
func makeRunKey(runID string) []byte {
	return append([]byte(runRecordPrefix), runID...)
}

// makeRunDateKey generates a composite key for the run start index.
// Format: prefix:timestamp:runID
func makeRunDateKey(startedAt time.Time, runID string) []byte {
	prefixBytes := []byte(runRecordDatePrefix)
	buf := make([]byte, len(prefixBytes)+8+len(runID))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(startedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], runID)
	return buf
}
