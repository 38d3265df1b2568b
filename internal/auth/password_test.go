package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("tour-secret")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	hash2, err := HashPassword("tour-secret")
	if err != nil {
		t.Fatalf("HashPassword() failed on second call: %v", err)
	}
	if hash == hash2 {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("tour-secret")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
		wantErr  bool
	}{
		{"correct password", "tour-secret", hash, true, false},
		{"wrong password", "guess", hash, false, false},
		{"empty password", "", hash, false, false},
		{"not argon2id", "tour-secret", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", false, true},
		{"too few parts", "tour-secret", "$argon2id$v=19$m=1", false, true},
		{"bad salt", "tour-secret", "$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA", false, true},
		{"zero iterations", "tour-secret", "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHQ$aGFzaA", false, true},
		{"zero threads", "tour-secret", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdHNhbHQ$aGFzaA", false, true},
		{"zero memory", "tour-secret", "$argon2id$v=19$m=0,t=1,p=4$c2FsdHNhbHQ$aGFzaA", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyPassword(tt.password, tt.hash)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifyPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidHash) {
				t.Errorf("error %v is not ErrInvalidHash", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentialsCheck(t *testing.T) {
	hash, err := HashPassword("tour-secret")
	if err != nil {
		t.Fatal(err)
	}
	creds := Credentials{Username: "admin", PasswordHash: hash}

	if !creds.Check("admin", "tour-secret") {
		t.Error("valid credentials rejected")
	}
	if creds.Check("Admin", "tour-secret") {
		t.Error("wrong username accepted")
	}
	if creds.Check("admin", "nope") {
		t.Error("wrong password accepted")
	}
	if (Credentials{Username: "admin", PasswordHash: "plain"}).Check("admin", "plain") {
		t.Error("malformed hash accepted")
	}
}

func TestValidateHash(t *testing.T) {
	hash, err := HashPassword("tour-secret")
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidateHash(hash); err != nil {
		t.Errorf("ValidateHash(generated) = %v", err)
	}
	if err := ValidateHash("$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHQ$aGFzaA"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("ValidateHash(t=0) = %v, want ErrInvalidHash", err)
	}

	creds := Credentials{Username: "admin", PasswordHash: "$argon2id$v=19$m=65536,t=1,p=0$c2FsdHNhbHQ$aGFzaA"}
	if creds.Check("admin", "tour-secret") {
		t.Error("hash with zero threads accepted")
	}
}
