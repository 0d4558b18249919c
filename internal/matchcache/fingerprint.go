package matchcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint identifies a stream within a group for match caching. The
// stream name participates so a renamed stream is re-evaluated instead of
// reusing a stale decision.
func Fingerprint(groupID int64, streamID int64, streamName string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%d|%d|%s", groupID, streamID, streamName))
	return hex.EncodeToString(sum[:])
}
