package common

import "testing"

func TestLanguageCode(t *testing.T) {
	valid := []string{"eng", "deu", "chi_sim", "eng+deu", "script-Latin"}
	for _, v := range valid {
		if err := LanguageCode("lang", v); err != nil {
			t.Errorf("%q should be valid: %v", v, err)
		}
	}
	invalid := []any{"", "en g", "+eng", "eng+", "../eng", 3}
	for _, v := range invalid {
		if err := LanguageCode("lang", v); err == nil {
			t.Errorf("%v should be rejected", v)
		}
	}
}

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("dpi", 0, IntRange(1, 600)).
		Field("color_mode", "COLOR", OneOf("grayscale", "color")).
		Field("lang", "", Required)

	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d: %s", len(v.Errors()), v.ErrorMessage())
	}
	if !IsValidationError(v.Error()) {
		t.Fatalf("Error() should wrap ErrInvalidInput: %v", v.Error())
	}
	if NewValidator().Error() != nil {
		t.Fatal("empty validator must return nil")
	}
}
