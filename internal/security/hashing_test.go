package security

import "testing"

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4) // min cost for test speed
	digest, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" || digest == "correct horse battery staple" {
		t.Fatal("digest empty or equal to plaintext")
	}
	if !h.Verify([]byte("correct horse battery staple"), digest) {
		t.Error("Verify rejected correct password")
	}
	if h.Verify([]byte("wrong password"), digest) {
		t.Error("Verify accepted wrong password")
	}
}

func TestNewHasher_CostClamped(t *testing.T) {
	if got := NewHasher(0).Cost; got < 4 || got > 31 {
		t.Errorf("NewHasher(0).Cost = %d out of range", got)
	}
	if got := NewHasher(99).Cost; got != 31 {
		t.Errorf("NewHasher(99).Cost = %d, want 31", got)
	}
	if got := NewHasher(2).Cost; got != 4 {
		t.Errorf("NewHasher(2).Cost = %d, want 4", got)
	}
}
