package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// domainSnapshot prefixes snapshot checksums for domain separation.
// Version suffix enables future algorithm migration.
const domainSnapshot = "worldlog/snapshot/v1"

// Checksum computes the content checksum of a snapshot: SHA-256 over
// the domain, the watermark, and the serialized node list, with null
// separators between the parts to keep the boundaries unambiguous.
func Checksum(watermark int64, nodes []byte) string {
	h := sha256.New()
	h.Write([]byte(domainSnapshot))
	h.Write([]byte{0x00})
	h.Write([]byte(strconv.FormatInt(watermark, 10)))
	h.Write([]byte{0x00})
	h.Write(nodes)
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
