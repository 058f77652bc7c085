package todo

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"time"
)

// newItemID returns <unix-millis base36>-<random base36>. Collisions are not
// checked; with 53 random bits per millisecond they are treated as negligible.
func newItemID(now time.Time) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint64(b[:]) >> 11 // keep 53 bits, like a float mantissa
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + strconv.FormatUint(n, 36), nil
}
