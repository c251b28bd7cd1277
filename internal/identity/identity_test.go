package identity

import "testing"

func TestHashPseudonymStable(t *testing.T) {
	// Known SHA-256 of "alice"; progress resumption depends on this never changing.
	const want = "2bd806c97f0e00af1a1fc3328fa763a9269723c8db8fad4f3a0b62c3e5152e9c"
	if got := HashPseudonym("alice"); got != want {
		t.Fatalf("HashPseudonym(alice) = %s, want %s", got, want)
	}
	if HashPseudonym("alice") != HashPseudonym("alice") {
		t.Fatalf("hash must be deterministic")
	}
	if HashPseudonym("alice") == HashPseudonym("Alice") {
		t.Fatalf("hash must be case sensitive")
	}
}

func TestDisplayHash(t *testing.T) {
	hash := HashPseudonym("alice")
	short := DisplayHash(hash)
	if len(short) != 10 || hash[:10] != short {
		t.Fatalf("expected 10-char prefix, got %q", short)
	}
	if got := DisplayHash("abc"); got != "abc" {
		t.Fatalf("short input passes through, got %q", got)
	}
}

func TestIsAdminUser(t *testing.T) {
	if !IsAdminUser("Admin", "admin") {
		t.Fatalf("admin match must be case insensitive")
	}
	if IsAdminUser("admin", "") {
		t.Fatalf("unconfigured admin name must never match")
	}
	if IsAdminUser("student", "admin") {
		t.Fatalf("non-admin matched")
	}
}

func TestCheckAdminKey(t *testing.T) {
	if !CheckAdminKey("s3cret", "s3cret") {
		t.Fatalf("matching key rejected")
	}
	if CheckAdminKey("wrong", "s3cret") {
		t.Fatalf("wrong key accepted")
	}
	if CheckAdminKey("", "") || CheckAdminKey("", "s3cret") {
		t.Fatalf("empty key must never authenticate")
	}
}
