package pow

import "testing"

func TestProduceVerifyRoundTrip(t *testing.T) {
	for _, k := range []int{0, 1, 2, 3} {
		p := Produce("node-1", k)
		if !Verify(p, "node-1", k) {
			t.Fatalf("k=%d: Verify(Produce()) = false, want true", k)
		}
	}
}

func TestVerifyRejectsAlteredField(t *testing.T) {
	p := Produce("node-1", 2)

	altered := p
	altered.Nonce++
	if Verify(altered, "node-1", 2) {
		t.Fatal("Verify accepted proof with altered nonce")
	}

	altered = p
	altered.DifficultyK = 1
	if Verify(altered, "node-1", 2) {
		t.Fatal("Verify accepted mismatched difficulty_k")
	}

	altered = p
	altered.HashAlg = "sha1"
	if Verify(altered, "node-1", 2) {
		t.Fatal("Verify accepted non-sha256 hash_alg")
	}

	if Verify(p, "node-2", 2) {
		t.Fatal("Verify accepted proof for a different sender_id")
	}
}

func TestLeadingZerosSatisfied(t *testing.T) {
	p := Produce("abc", 3)
	if leadingZeros(p.DigestHex) < 3 {
		t.Fatalf("digest %q has fewer than 3 leading zeros", p.DigestHex)
	}
}
