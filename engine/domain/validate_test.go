package domain

import (
	"errors"
	"testing"
)

func TestValidateFoodName(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"valid", "chicken breast", "chicken breast", nil},
		{"trimmed", "  banana  ", "banana", nil},
		{"strips markup", `<b>rice</b>`, "brice/b", nil},
		{"empty", "", "", ErrNameRequired},
		{"too short", "a", "", ErrNameTooShort},
		{"only stripped chars", `<>"'`, "", ErrNameRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateFoodName(tc.in)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ValidateFoodName(%q) err = %v, want %v", tc.in, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateFoodName(%q) unexpected err: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ValidateFoodName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	long := make([]byte, MaxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := ValidateFoodName(string(long)); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestValidateQuantity(t *testing.T) {
	if err := ValidateQuantity(150); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateQuantity(0); !errors.Is(err, ErrQuantityNotPositive) {
		t.Fatalf("expected ErrQuantityNotPositive, got %v", err)
	}
	if err := ValidateQuantity(-10); !errors.Is(err, ErrQuantityNotPositive) {
		t.Fatalf("expected ErrQuantityNotPositive, got %v", err)
	}
	if err := ValidateQuantity(MaxQuantityG + 1); !errors.Is(err, ErrQuantityTooLarge) {
		t.Fatalf("expected ErrQuantityTooLarge, got %v", err)
	}
}

func TestValidateQuery(t *testing.T) {
	got, err := ValidateQuery("high protein snack")
	if err != nil || got != "high protein snack" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := ValidateQuery(""); !errors.Is(err, ErrQueryRequired) {
		t.Fatalf("expected ErrQueryRequired, got %v", err)
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := NewValidationError("food_name", "x", ErrNameTooShort)
	if !errors.Is(err, ErrNameTooShort) {
		t.Fatal("expected errors.Is to match the sentinel")
	}
	if !IsValidation(err) {
		t.Fatal("expected IsValidation to be true")
	}
	if IsValidation(errors.New("other")) {
		t.Fatal("expected IsValidation to be false for plain errors")
	}
}

func TestMacrosScale(t *testing.T) {
	f := NutritionFact{Calories100g: 100, Protein100g: 10, Carbs100g: 20, Fat100g: 5}
	m := f.ForQuantity(250)
	if m.Calories != 250 || m.Protein != 25 || m.Carbs != 50 || m.Fat != 12.5 {
		t.Fatalf("unexpected scaled macros: %+v", m)
	}
}
