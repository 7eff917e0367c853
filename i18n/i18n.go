// Package i18n translates error and violation codes into user-facing text.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "en"

type ctxKey struct{}

var catalog = map[string]map[string]string{
	"en": {
		"required":       "Required",
		"email":          "Must be a valid email address",
		"url":            "Must be an http(s) URL",
		"too_long":       "Too long",
		"invalid":        "Invalid value",
		"invalid_choice": "Not an allowed value",
		"out_of_range":   "Value is out of range",
		"read_only":      "This field cannot be changed here",

		"authentication_required": "Sign in to continue",
		"authorization_denied":    "You do not have access to this",
		"not_found":               "Not found",
		"conflict":                "The request conflicts with the current state",
		"validation_failed":       "Some fields are invalid",
		"malformed_body":          "Request body is not valid JSON for this operation",
		"dependency_failure":      "An upstream service is unavailable",
		"internal_error":          "Something went wrong",

		"wrong_role":              "Your role does not allow this. Ask an administrator to change your role",
		"not_admin":               "Administrator access required",
		"not_owner":               "This achievement belongs to someone else",
		"wrong_verifier":          "This link was sent to a different email. Sign in with the invited address",
		"token_not_found":         "This verification link does not exist",
		"link_already_used":       "This verification link has already been used",
		"link_expired":            "This verification link has expired",
		"already_verified":        "This achievement is already verified",
		"request_not_pending":     "This verification request is no longer pending",
		"achievement_not_found":   "Achievement not found",
		"profile_not_found":       "Profile not found",
		"profile_exists":          "A profile already exists for this account",
		"username_taken":          "This username is taken",
		"email_not_delivered":     "The request was created but the email could not be sent. Share the link manually",
		"request_not_found":       "Verification request not found",
		"request_already_pending": "A verification request for this achievement is already pending",
	},
	"ru": {
		"required":       "Обязательное поле",
		"email":          "Введите корректный email",
		"url":            "Нужна ссылка http(s)",
		"too_long":       "Слишком длинное значение",
		"invalid":        "Недопустимое значение",
		"invalid_choice": "Значение не из списка",
		"out_of_range":   "Значение вне допустимого диапазона",
		"read_only":      "Это поле нельзя изменить здесь",

		"authentication_required": "Войдите, чтобы продолжить",
		"authorization_denied":    "Нет доступа",
		"not_found":               "Не найдено",
		"conflict":                "Запрос конфликтует с текущим состоянием",
		"validation_failed":       "Некоторые поля заполнены неверно",
		"malformed_body":          "Некорректное тело запроса",
		"dependency_failure":      "Внешний сервис недоступен",
		"internal_error":          "Что-то пошло не так",

		"wrong_role":              "Ваша роль не позволяет это действие. Попросите администратора сменить роль",
		"not_admin":               "Требуются права администратора",
		"not_owner":               "Это достижение принадлежит другому пользователю",
		"wrong_verifier":          "Ссылка отправлена на другой email. Войдите с приглашённым адресом",
		"token_not_found":         "Такой ссылки подтверждения не существует",
		"link_already_used":       "Ссылка подтверждения уже использована",
		"link_expired":            "Срок действия ссылки истёк",
		"already_verified":        "Достижение уже подтверждено",
		"request_not_pending":     "Запрос на подтверждение уже закрыт",
		"achievement_not_found":   "Достижение не найдено",
		"profile_not_found":       "Профиль не найден",
		"profile_exists":          "Профиль для этого аккаунта уже существует",
		"username_taken":          "Имя пользователя занято",
		"email_not_delivered":     "Запрос создан, но письмо не отправлено. Поделитесь ссылкой вручную",
		"request_not_found":       "Запрос на подтверждение не найден",
		"request_already_pending": "Запрос на подтверждение этого достижения уже ожидает ответа",
	},
}

// DetectLanguage picks a supported language from an Accept-Language header value.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := catalog[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// Normalize returns lang if supported, DefaultLang otherwise.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := catalog[lang]; ok {
		return lang
	}
	return DefaultLang
}

// T returns the message for code in lang, falling back to the default
// language and then to the code itself.
func T(lang, code string) string {
	if m, ok := catalog[strings.ToLower(lang)]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[DefaultLang][code]; ok {
		return s
	}
	return code
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, Normalize(lang))
}

func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(ctxKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}
