package common

import (
	"errors"
	"testing"
)

func TestShapeRules(t *testing.T) {
	tests := []struct {
		name  string
		rule  ValidationRule
		value string
		ok    bool
	}{
		{"gstin valid", GSTIN, "29ABCDE1234F1Z5", true},
		{"gstin lowercase", GSTIN, "29abcde1234f1z5", false},
		{"gstin short", GSTIN, "29ABCDE1234F1Z", false},
		{"gstin empty", GSTIN, "", true},
		{"pan valid", PAN, "ABCDE1234F", true},
		{"pan digits swapped", PAN, "ABCD12345F", false},
		{"amount integer", Amount, "50000", true},
		{"amount two decimals", Amount, "475.00", true},
		{"amount separators", Amount, "65,000.00", false},
		{"amount three decimals", Amount, "1.005", false},
		{"pincode", Pincode, "560100", true},
		{"pincode leading zero", Pincode, "060100", false},
		{"email", Email, "accounts@abctech.com", true},
		{"email no tld", Email, "accounts@abctech", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule("f", tt.value)
			if (err == nil) != tt.ok {
				t.Fatalf("rule(%q) = %v, want ok=%v", tt.value, err, tt.ok)
			}
		})
	}
}

func TestValidatorWrapsShapeError(t *testing.T) {
	v := NewValidator().
		Field("gstin", "bogus", GSTIN).
		Field("total", "118.00", Amount)
	if !v.HasErrors() || len(v.Errors()) != 1 {
		t.Fatalf("expected exactly one error, got %v", v.Errors())
	}
	if !errors.Is(v.Error(), ErrShapeValidation) {
		t.Fatalf("expected ErrShapeValidation, got %v", v.Error())
	}
}

func TestInputErrorClassification(t *testing.T) {
	err := InputError("open scan.png", errors.New("no such file"))
	if !IsInputError(err) {
		t.Fatalf("expected input error, got %v", err)
	}
	if IsInputError(BackendUnavailable("tesseract", errors.New("exit 1"))) {
		t.Fatalf("backend failure must not classify as input error")
	}
}
