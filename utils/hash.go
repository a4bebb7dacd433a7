package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"Mazraaty/config"
)

// HashPhone hashes a phone number for storage and log references. Salted to
// resist rainbow tables: salt + ":" + phone.
func HashPhone(phone string) string {
	key := config.Cfg.PhoneHashSalt

	sum := sha256.Sum256([]byte(key + ":" + phone))

	return hex.EncodeToString(sum[:])
}

// HashDedupKey hashes a (tenant, dedup key) pair for the dedup store so raw
// producer keys never land in an index.
func HashDedupKey(tenantID, dedupKey string) string {
	sum := sha256.Sum256([]byte(tenantID + ":" + dedupKey))

	return hex.EncodeToString(sum[:])
}
