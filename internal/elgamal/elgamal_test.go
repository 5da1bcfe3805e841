package elgamal

import (
	"crypto/rand"
	"errors"
	"testing"

	"zkengine/internal/group"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(group.NewBN254Ops(rand.Reader))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	kp, err := eng.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	for _, amount := range []uint64{0, 1, 42, 1000, 65535} {
		ct, _, err := eng.Encrypt(amount, &kp.Public)
		if err != nil {
			t.Fatalf("Encrypt(%d) failed: %v", amount, err)
		}
		got, err := eng.Decrypt(&ct, &kp.Secret, 65536)
		if err != nil {
			t.Fatalf("Decrypt(%d) failed: %v", amount, err)
		}
		if got != amount {
			t.Errorf("Decrypt returned %d, want %d", got, amount)
		}
	}
}

func TestDecryptExhaustsSearchBudget(t *testing.T) {
	eng := newTestEngine(t)
	kp, err := eng.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	ct, _, err := eng.Encrypt(500, &kp.Public)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	_, err = eng.Decrypt(&ct, &kp.Secret, 100)
	var decErr *DecryptionError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecryptionError, got %v", err)
	}
	if decErr.MaxValue != 100 {
		t.Errorf("DecryptionError.MaxValue = %d, want 100", decErr.MaxValue)
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	eng := newTestEngine(t)
	kp1, _ := eng.GenerateKeypair()
	kp2, _ := eng.GenerateKeypair()

	ct, _, err := eng.Encrypt(7, &kp1.Public)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if got, err := eng.Decrypt(&ct, &kp2.Secret, 1000); err == nil {
		t.Errorf("wrong key decrypted to %d, want failure", got)
	}
}

func TestHomomorphicAddSub(t *testing.T) {
	eng := newTestEngine(t)
	kp, _ := eng.GenerateKeypair()

	ctA, _, err := eng.Encrypt(300, &kp.Public)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	ctB, _, err := eng.Encrypt(120, &kp.Public)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	sum := Add(&ctA, &ctB)
	if got, err := eng.Decrypt(&sum, &kp.Secret, 1000); err != nil || got != 420 {
		t.Errorf("Decrypt(sum) = %d, %v; want 420", got, err)
	}

	diff := Sub(&ctA, &ctB)
	if got, err := eng.Decrypt(&diff, &kp.Secret, 1000); err != nil || got != 180 {
		t.Errorf("Decrypt(diff) = %d, %v; want 180", got, err)
	}
}

func TestEncryptWithBlindingIsDeterministic(t *testing.T) {
	eng := newTestEngine(t)
	kp, _ := eng.GenerateKeypair()

	r, err := group.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	ct1 := eng.EncryptWithBlinding(55, &kp.Public, &r)
	ct2 := eng.EncryptWithBlinding(55, &kp.Public, &r)
	if !ct1.Commitment.Equal(&ct2.Commitment) || !ct1.Handle.Equal(&ct2.Handle) {
		t.Errorf("same blinding must give identical ciphertexts")
	}

	ct3, _, err := eng.Encrypt(55, &kp.Public)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if ct1.Commitment.Equal(&ct3.Commitment) {
		t.Errorf("fresh blinding produced a repeated commitment")
	}
}

func TestCiphertextBindsToRecipientKey(t *testing.T) {
	eng := newTestEngine(t)
	kp1, _ := eng.GenerateKeypair()
	kp2, _ := eng.GenerateKeypair()

	r, _ := group.RandomScalar(rand.Reader)
	ct1 := eng.EncryptWithBlinding(9, &kp1.Public, &r)
	ct2 := eng.EncryptWithBlinding(9, &kp2.Public, &r)

	// Same amount and blinding: the commitments agree but the handles differ.
	if !ct1.Commitment.Equal(&ct2.Commitment) {
		t.Errorf("commitment must not depend on the recipient key")
	}
	if ct1.Handle.Equal(&ct2.Handle) {
		t.Errorf("handle must bind the recipient key")
	}
}
