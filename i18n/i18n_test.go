package i18n

import "testing"

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("VI-vn") != "vi" {
		t.Fatalf("expected vi for VI-vn")
	}
	if DetectLanguage("fr-FR,vi;q=0.8") != "vi" {
		t.Fatalf("expected vi as first supported tag")
	}
	if DetectLanguage("fr-FR,fr;q=0.8") != "en" {
		t.Fatalf("expected en fallback")
	}
	if DetectLanguage("") != "en" {
		t.Fatalf("expected default en")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("vi", "required") != "Bắt buộc" {
		t.Fatalf("expected Bắt buộc")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to en translation
	if T("es", "required") != "Required" {
		t.Fatalf("expected en fallback for es lang")
	}
}

func TestTablesHaveSameCodes(t *testing.T) {
	for code := range messages[Default] {
		if _, ok := messages["vi"][code]; !ok {
			t.Errorf("vi is missing %q", code)
		}
	}
	for code := range messages["vi"] {
		if _, ok := messages[Default][code]; !ok {
			t.Errorf("en is missing %q", code)
		}
	}
}
