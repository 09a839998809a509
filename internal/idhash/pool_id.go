// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePoolRecordID computes a deterministic record id using SHA256.
// Formula: SHA256(pool_id|tx_signature|slot)
// Returns hex-encoded hash (64 characters).
func ComputePoolRecordID(poolID, txSignature string, slot int64) string {
	data := fmt.Sprintf("%s|%s|%d", poolID, txSignature, slot)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
