// Package pow implements the HELLO admission cost: a SHA-256 hashcash proof
// that a hash of the nonce and node ID carries k_pow leading hex zeros.
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// HashAlg is the only algorithm name this engine produces or accepts.
const HashAlg = "sha256"

// Proof is the wire-shaped proof-of-work attached to a HELLO payload.
type Proof struct {
	HashAlg     string `json:"hash_alg"`
	DifficultyK int    `json:"difficulty_k"`
	Nonce       int64  `json:"nonce"`
	DigestHex   string `json:"digest_hex"`
}

// digest computes SHA256_HEX(strconv.FormatInt(nonce,10) + id).
func digest(nonce int64, id string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(nonce, 10) + id))
	return hex.EncodeToString(sum[:])
}

// leadingZeros counts leading hex zero characters in s.
func leadingZeros(s string) int {
	n := 0
	for n < len(s) && s[n] == '0' {
		n++
	}
	return n
}

// Produce mines a nonce whose digest has at least k leading hex zeros and
// returns the resulting proof. Produce never returns for k so large that no
// 64-character hex digest could satisfy it (k > 64); callers validate k_pow
// at config time (domain.RuntimeConfig.Validate does not bound it further,
// since any non-negative k is numerically well-formed — operationally,
// k beyond a handful of digits is simply impractical to mine).
func Produce(nodeID string, k int) Proof {
	var nonce int64
	for {
		d := digest(nonce, nodeID)
		if leadingZeros(d) >= k {
			return Proof{HashAlg: HashAlg, DifficultyK: k, Nonce: nonce, DigestHex: d}
		}
		nonce++
	}
}

// Verify performs all four required checks from spec.md §4.2. senderID is
// the sender_id the proof is claimed to admit, and k is the node's
// configured k_pow (the verifier's own requirement, not the proof's
// self-reported difficulty — difficulty_k must match exactly).
func Verify(p Proof, senderID string, k int) bool {
	if p.HashAlg != HashAlg {
		return false
	}
	if p.DifficultyK != k {
		return false
	}
	if p.DigestHex == "" || !isHex(p.DigestHex) {
		return false
	}
	if p.DigestHex != digest(p.Nonce, senderID) {
		return false
	}
	return leadingZeros(p.DigestHex) >= k
}

func isHex(s string) bool {
	return len(s) > 0 && strings.Trim(s, "0123456789abcdef") == ""
}
