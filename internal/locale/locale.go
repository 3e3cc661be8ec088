// Package locale provides the user-facing strings the engine hands to hosts
// (placeholder title, "+N more" label, weekday headers) and the locale-derived
// first day of week.
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/engine"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator resolves messages for one language.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	tag       language.Tag
	languages []string
}

// New loads every embedded locale and selects lang (an ISO 639-1 code,
// optionally with a region). Unknown languages fall back to English.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}
	t.languages = loadLocales(bundle)
	t.SetLanguage(lang)
	return t
}

func loadLocales(bundle *i18n.Bundle) []string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompLocale,
			config.LogKeyError, err,
		)
		return nil
	}

	var detected []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompLocale,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompLocale,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompLocale,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detected = append(detected, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompLocale,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}
	return detected
}

// SetLanguage switches the active language.
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	t.tag = tag
	t.localizer = i18n.NewLocalizer(t.bundle, tag.String())
}

// Languages lists the language codes found in the embedded locales.
func (t *Translator) Languages() []string {
	return t.languages
}

// Tag returns the language tag in use.
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// Msg translates key, returning the key itself when it is missing.
func (t *Translator) Msg(key string) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{MessageID: key})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompLocale,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// PlaceholderTitle is the title given to events created with a blank title.
func (t *Translator) PlaceholderTitle() string {
	msg := t.Msg(config.TKeyPlaceholderTitle)
	if msg == config.TKeyPlaceholderTitle {
		return config.FallbackTitle
	}
	return msg
}

// MoreLabel renders the "+N more" summary of a capped month cell.
func (t *Translator) MoreLabel(n int) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyMoreEvents,
		PluralCount:  n,
		TemplateData: map[string]any{"Count": n},
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompLocale,
			config.LogKeyKey, config.TKeyMoreEvents,
			config.LogKeyError, err,
		)
		return fmt.Sprintf(config.FallbackMoreLabel, n)
	}
	return msg
}

// WeekdayLabels returns the seven short weekday names, starting at weekStart.
func (t *Translator) WeekdayLabels(weekStart time.Weekday) []string {
	labels := make([]string, 0, config.DaysPerWeek)
	for i := 0; i < config.DaysPerWeek; i++ {
		wd := (int(weekStart) + i) % config.DaysPerWeek
		labels = append(labels, t.Msg(config.TKeyWeekdayPrefix+strconv.Itoa(wd)))
	}
	return labels
}

// FirstDayOfWeek returns the first day of week of the active language.
func (t *Translator) FirstDayOfWeek() time.Weekday {
	return FirstDayOfWeek(t.tag)
}

// sundayRegions start their week on Sunday; everything else starts on Monday.
var sundayRegions = map[string]bool{
	"AG": true, "AS": true, "BR": true, "BS": true, "BZ": true, "CA": true,
	"CO": true, "DM": true, "DO": true, "GT": true, "HK": true, "HN": true,
	"IL": true, "IN": true, "JM": true, "JP": true, "KE": true, "KR": true,
	"MX": true, "NI": true, "PA": true, "PE": true, "PH": true, "PR": true,
	"PY": true, "SA": true, "SV": true, "TH": true, "TW": true, "US": true,
	"VE": true, "ZA": true, "ZW": true,
}

// FirstDayOfWeek derives the first day of week from the tag's region. Tags
// without an explicit region use their most likely one ("en" is US, "fr" is FR).
func FirstDayOfWeek(tag language.Tag) time.Weekday {
	region, _ := tag.Region()
	if sundayRegions[region.String()] {
		return time.Sunday
	}
	return time.Monday
}

// ResolveWeekStart returns the explicit setting when present ("sunday" or
// "monday"), otherwise the locale's first day of week.
func (t *Translator) ResolveWeekStart(setting string) time.Weekday {
	if setting == "" {
		return t.FirstDayOfWeek()
	}
	ws, err := engine.ParseWeekStart(setting)
	if err != nil {
		slog.Warn(err.Error(), config.LogKeyComponent, config.CompLocale)
		return t.FirstDayOfWeek()
	}
	return ws
}
