package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGraph    = "depres/graph/v1"
	DomainRegistry = "depres/registry/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphFingerprint computes the content-addressed identity of a resolved
// graph snapshot. Two passes over the same registry, configuration and
// model list produce the same fingerprint.
func GraphFingerprint(snapshot map[string]any) (string, error) {
	canonical, err := MarshalCanonical(snapshot)
	if err != nil {
		return "", fmt.Errorf("GraphFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// RegistryFingerprint computes a content-addressed identity for a list of
// descriptor identities, in registration order.
func RegistryFingerprint(ids []Identity) (string, error) {
	arr := make([]any, len(ids))
	for i, id := range ids {
		arr[i] = map[string]any{
			"capability": id.Capability,
			"type":       id.Type,
			"function":   id.Function,
			"module":     id.Module,
			"version":    id.Version,
		}
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("RegistryFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRegistry, canonical), nil
}
