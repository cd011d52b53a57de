package normalize

import (
	"crypto/md5"
	"encoding/hex"
)

// ContentHash derives the legacy dedup key from an address. Kept as md5 so
// hashes line up with entries created by the original importer.
func ContentHash(address string) string {
	sum := md5.Sum([]byte(address))
	return hex.EncodeToString(sum[:])
}
