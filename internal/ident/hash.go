package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Domain prefixes for content-addressed hashes. The version suffix allows
// migrating the algorithm later.
const (
	DomainCache  = "pedago/cache/v1"
	DomainExport = "pedago/export/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash hashes the canonical JSON encoding of v under domain.
func ContentHash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RawHash hashes an opaque byte payload under domain.
func RawHash(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// keyEscaper percent-encodes the separator and the escape byte so that
// distinct parts always yield distinct keys.
var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// Key joins the parts of a fact into a readable, deterministic id.
func Key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(keyEscaper.Replace(p))
	}
	return b.String()
}

// Millis renders a time as a Unix-millisecond id component.
func Millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
