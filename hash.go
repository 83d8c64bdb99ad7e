package groundtext

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// contentID derives a stable identifier from text content. Used as the
// default Document ID, so identical text always hashes the same way
// regardless of which request produced it. The cache package derives
// its keys separately (cache.Key).
func contentID(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 36)
}
