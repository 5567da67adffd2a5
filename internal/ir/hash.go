package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix allows migrating the
// algorithm without colliding with old digests.
const (
	DomainFrame = "mixer/frame/v1"
	DomainTrack = "mixer/track/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FrameDigest hashes the canonical encoding of one frame's events.
// The same events in the same order always produce the same digest.
func FrameDigest(iteration uint64, events []IRObject) (string, error) {
	arr := make(IRArray, len(events))
	for i, ev := range events {
		arr[i] = ev
	}
	obj := IRObject{
		"iteration":     IRInt(int64(iteration)),
		"events":        arr,
		"trace_version": IRString(TraceVersion),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FrameDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFrame, canonical), nil
}

// TrackHash hashes a serialized track definition.
func TrackHash(data []byte) string {
	return hashWithDomain(DomainTrack, data)
}
