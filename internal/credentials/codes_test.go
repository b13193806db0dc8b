package credentials

import (
	"regexp"
	"testing"
)

func TestGenerateFamilyCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := GenerateFamilyCode()
		if err != nil {
			t.Fatalf("GenerateFamilyCode() error = %v", err)
		}
		if !pattern.MatchString(code) {
			t.Errorf("code %q does not match %s", code, pattern)
		}
		seen[code] = true
	}

	if len(seen) < 95 {
		t.Errorf("expected mostly unique codes, got %d distinct of 100", len(seen))
	}
}

func TestGenerateOTP(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{6}$`)

	for i := 0; i < 100; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if !pattern.MatchString(otp) {
			t.Errorf("otp %q is not a 7 digit number", otp)
		}
	}
}
