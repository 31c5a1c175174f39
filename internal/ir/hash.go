package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainMatch    = "spanrule/match/v1"
	DomainDocument = "spanrule/document/v1"
	DomainScript   = "spanrule/script/v1"
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

// MatchHash computes the fingerprint of a serialized match tree.
// Two runs of the same rule over the same stream produce the same hash.
func MatchHash(tree Object) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("MatchHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMatch, canonical), nil
}

// DocumentHash identifies a document by its text and initial spans.
func DocumentHash(text string, spans []Span) (string, error) {
	items := make([]Value, len(spans))
	for i, s := range spans {
		items[i] = s.Object()
	}
	canonical, err := MarshalCanonical(Object{
		"text":  String(text),
		"spans": List{Elem: KindObject, Items: items},
	})
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// ScriptHash identifies rule-script source text.
func ScriptHash(source string) string {
	return hashWithDomain(DomainScript, []byte(source))
}

// MustMatchHash is like MatchHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMatchHash(tree Object) string {
	h, err := MatchHash(tree)
	if err != nil {
		panic(err)
	}
	return h
}
