package i18n

import (
	"context"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("RU-ru") != "ru" {
		t.Fatalf("expected ru for RU-ru")
	}
	if DetectLanguage("kk-KZ,ru;q=0.8") != "ru" {
		t.Fatalf("expected ru as second choice")
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
	if T("ru", "required") != "Обязательное поле" {
		t.Fatalf("expected ru translation")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to en translation
	if T("es", "link_already_used") != "This verification link has already been used" {
		t.Fatalf("expected en fallback for es lang")
	}
}

func TestLangContext(t *testing.T) {
	ctx := WithLang(context.Background(), "RU")
	if LangFromContext(ctx) != "ru" {
		t.Fatalf("expected ru from context")
	}
	if LangFromContext(context.Background()) != "en" {
		t.Fatalf("expected default when unset")
	}
	if LangFromContext(WithLang(context.Background(), "de")) != "en" {
		t.Fatalf("unsupported lang should normalize to default")
	}
}
