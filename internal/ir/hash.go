package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainBatch prefixes batch digests. The version suffix changes with the
// document layout.
const DomainBatch = "receiptdb/batch/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BatchDigest computes the content digest of a canonical batch document.
// Re-normalizing the same receipts must reproduce the same digest.
func BatchDigest(doc IRValue) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("BatchDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBatch, canonical), nil
}
