package otp

import "testing"

func TestGenerate_LengthAndDigits(t *testing.T) {
	g := NewGenerator(6)

	for i := 0; i < 50; i++ {
		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("Expected 6-digit code, got %q", code)
		}
		if !g.Validate(code) {
			t.Fatalf("Generated code %q failed validation", code)
		}
	}
}

func TestNewGenerator_ClampsLength(t *testing.T) {
	if got := NewGenerator(2).Length(); got != 4 {
		t.Errorf("Expected clamp to 4, got %d", got)
	}
	if got := NewGenerator(20).Length(); got != 10 {
		t.Errorf("Expected clamp to 10, got %d", got)
	}
}

func TestValidate_RejectsNonDigits(t *testing.T) {
	g := NewGenerator(6)

	cases := []string{"12345", "1234567", "12a456", "12 456", ""}
	for _, c := range cases {
		if g.Validate(c) {
			t.Errorf("Expected %q to be invalid", c)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		" 123456 ": "123456",
		"123 456":  "123456",
		"123-456":  "123456",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
