package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "ErrInvalidCaptcha")
	if got != "captcha verification failed" {
		t.Errorf("T(ErrInvalidCaptcha) = %q", got)
	}
}

func TestTranslateChinese(t *testing.T) {
	ctx := initLang(t, "zh")

	got := T(ctx, "ErrInvalidCaptcha")
	if got != "验证码错误" {
		t.Errorf("T(ErrInvalidCaptcha) = %q", got)
	}
}

func TestTranslateWithTemplateData(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "MsgRegistered", map[string]any{"Username": "alice"})
	if got != "alice registered successfully" {
		t.Errorf("Td(MsgRegistered) = %q", got)
	}
}

func TestMissingTranslationFallsBackToID(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NoSuchMessage")
	if got != "NoSuchMessage" {
		t.Errorf("T(NoSuchMessage) = %q, want the id itself", got)
	}
}

func TestNoLocalizerInContext(t *testing.T) {
	if err := Init("zh"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := T(context.Background(), "ErrNotFound")
	if got != "资源不存在" {
		t.Errorf("T without localizer = %q, want the default-language text", got)
	}
}
