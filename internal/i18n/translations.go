package i18n

import (
	"embed"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

//go:embed active.*.toml
var localeFS embed.FS

var localeFiles = []string{"active.it.toml", "active.en.toml"}

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	supported       []language.Tag
	matcher         language.Matcher
	logger          *slog.Logger
}

// NewTranslator loads the embedded catalogs; defaultLocale is used when a
// request names no supported language.
func NewTranslator(defaultLocale string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.Italian
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Error("i18n: failed to load catalog", "file", file, "error", err)
		}
	}

	// the default goes first so it wins ties in the matcher
	supported := []language.Tag{tag}
	for _, t := range bundle.LanguageTags() {
		if t != tag {
			supported = append(supported, t)
		}
	}

	return &Translator{
		bundle:          bundle,
		defaultLanguage: tag,
		supported:       supported,
		matcher:         language.NewMatcher(supported),
		logger:          logger,
	}
}

// Match picks the best supported locale for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLanguage.String()
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return t.defaultLanguage.String()
	}
	if idx < 0 || idx >= len(t.supported) {
		return t.defaultLanguage.String()
	}
	return t.supported[idx].String()
}

// T renders the message identified by key for the given locale, falling
// back to the default locale and finally to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Warn("i18n: localize failed", "key", key, "locales", languages, "error", err)
		return key
	}
	return msg
}
