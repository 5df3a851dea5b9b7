// Package i18n renders user-facing messages. Vietnamese is the primary
// language of the product; English is kept as a fallback for development
// and for clients that ask for it.
package i18n

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// localeFS embeds the YAML translation files.
//
//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLanguage is used when nothing else matches.
const DefaultLanguage = "vi"

var (
	bundle     *i18n.Bundle
	bundleOnce sync.Once
	matcher    language.Matcher
)

func load() {
	bundle = i18n.NewBundle(language.Vietnamese)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = bundle.ParseMessageFileBytes(data, f.Name())
	}
	matcher = language.NewMatcher(bundle.LanguageTags())
}

// Lookup returns the translation of id in lang, and whether one exists.
func Lookup(lang, id string, data map[string]interface{}) (string, bool) {
	bundleOnce.Do(load)

	localizer := i18n.NewLocalizer(bundle, lang, DefaultLanguage)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return "", false
	}
	return msg, true
}

// T translates id. If no translation exists the id itself is returned.
func T(lang, id string, data map[string]interface{}) string {
	if msg, ok := Lookup(lang, id, data); ok {
		return msg
	}
	return id
}

// First translates the first id that has a translation, falling back to
// the last id verbatim.
func First(lang string, data map[string]interface{}, ids ...string) string {
	for _, id := range ids {
		if msg, ok := Lookup(lang, id, data); ok {
			return msg
		}
	}
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

// Match picks the supported language for an Accept-Language header value.
// An empty or unparseable header yields fallback.
func Match(acceptLanguage, fallback string) string {
	bundleOnce.Do(load)

	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	base, _ := bundle.LanguageTags()[idx].Base()
	return base.String()
}

// Supported reports whether lang has a locale file.
func Supported(lang string) bool {
	bundleOnce.Do(load)

	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	for _, t := range bundle.LanguageTags() {
		if t == tag {
			return true
		}
	}
	return false
}
