package content

import "testing"

func TestParseLanguage(t *testing.T) {
	cases := []struct {
		tag  string
		want Language
		ok   bool
	}{
		{"en", LanguageEnglish, true},
		{"en-US", LanguageEnglish, true},
		{"es", LanguageSpanish, true},
		{"es-MX", LanguageSpanish, true},
		{"fr", "", false},
		{"", "", false},
		{"not a tag", "", false},
	}

	for _, tc := range cases {
		got, ok := ParseLanguage(tc.tag)
		if ok != tc.ok {
			t.Errorf("ParseLanguage(%q): expected ok=%v, got %v", tc.tag, tc.ok, ok)
		}
		if got != tc.want {
			t.Errorf("ParseLanguage(%q): expected %q, got %q", tc.tag, tc.want, got)
		}
	}
}

func TestDetectLanguageEnglish(t *testing.T) {
	text := "The government said that the new policy will be reviewed after the committee has completed its report on the matter."

	lang, ok := DetectLanguage(text)
	if !ok {
		t.Fatal("Expected detection to succeed")
	}
	if lang != LanguageEnglish {
		t.Errorf("Expected en, got %s", lang)
	}
}

func TestDetectLanguageSpanish(t *testing.T) {
	text := "El gobierno anunció que la nueva política será revisada cuando el comité haya terminado su informe sobre el asunto."

	lang, ok := DetectLanguage(text)
	if !ok {
		t.Fatal("Expected detection to succeed")
	}
	if lang != LanguageSpanish {
		t.Errorf("Expected es, got %s", lang)
	}
}

func TestDetectLanguageInconclusive(t *testing.T) {
	if lang, ok := DetectLanguage("foo bar baz qux"); ok {
		t.Errorf("Expected detection to fail on noise, got %s", lang)
	}
}
