package synccache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mhartmann/telestats/internal/types"
)

// Fingerprint derives a content-based identity for a record from fields that
// do not change between fetches of the same logical event. Upstream row
// identifiers are not stable across fetches, so the merge can never rely on
// them; two rows with the same display time, date, contact and duration are
// the same event no matter what IDs they carry.
func Fingerprint(r types.CanonicalCallRecord, offsetHours int) string {
	parts := []string{
		r.DisplayTime(offsetHours),
		r.FiredDate,
		r.ContactName,
		r.ContactPerson,
		r.FormattedDuration(),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
