// Package id derives node identifiers for catalog entities and run identifiers.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// namespace is the fixed UUIDv5 namespace for catalog node ids.
// Changing it re-keys every node and breaks incremental re-sourcing.
var namespace = uuid.MustParse("5c0f6e1e-3a52-4b0e-9a5e-0d6c8f2b7a41")

// NodeID returns the node identifier for an entity of the given type and natural key.
// The result is a UUIDv5 over "<type>__<key>", so it is identical across runs and processes.
func NodeID(nodeType, key string) string {
	return uuid.NewSHA1(namespace, []byte(nodeType+"__"+key)).String()
}

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "run-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}
