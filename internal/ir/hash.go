package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainContext = "varscope/context/v1"
	DomainTrace   = "varscope/trace/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContextFingerprint computes the cache fingerprint for a context.
// Only name->value mappings per scope participate; owner ids, flags, and
// timestamps do not. Names and values are hashed byte for byte.
func ContextFingerprint(c *ResolutionContext) (string, error) {
	canonical, err := MarshalExact(c.mappings())
	if err != nil {
		return "", fmt.Errorf("ContextFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainContext, canonical), nil
}

// TraceDigest hashes a canonical trace snapshot. Two traces with the same
// digest recorded the same steps, values, and errors.
func TraceDigest(snapshot map[string]any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}
