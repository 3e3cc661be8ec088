package locale_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-agenda/internal/config"
	"github.com/tartampluch/go-agenda/internal/locale"
	"golang.org/x/text/language"
)

// TestI18nIntegrity ensures every translation key used in code exists in
// every locale file.
func TestI18nIntegrity(t *testing.T) {
	keys := []string{
		config.TKeyPlaceholderTitle,
		config.TKeyMoreEvents,
	}
	for i := 0; i < config.DaysPerWeek; i++ {
		keys = append(keys, config.TKeyWeekdayPrefix+strconv.Itoa(i))
	}

	for _, lang := range config.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			content, err := os.ReadFile(filepath.Join("locales", "active."+lang+".json"))
			require.NoError(t, err)

			var jsonMap map[string]any
			require.NoError(t, json.Unmarshal(content, &jsonMap), "JSON must be valid")

			for _, k := range keys {
				_, exists := jsonMap[k]
				assert.Truef(t, exists, "key %q is missing in active.%s.json", k, lang)
			}
		})
	}
}

func TestNew_DetectsLanguages(t *testing.T) {
	tr := locale.New("en")
	assert.ElementsMatch(t, config.SupportedLanguages, tr.Languages())
}

func TestTranslator_Messages(t *testing.T) {
	tests := []struct {
		lang        string
		placeholder string
		more1       string
		more3       string
		firstLabel  string
	}{
		{"en", "New appointment", "+1 more", "+3 more", "Sun"},
		{"fr", "Nouveau rendez-vous", "+1 autre", "+3 autres", "dim."},
		{"de", "New appointment", "+1 more", "+3 more", "Sun"}, // Fallback to English
		{"", "New appointment", "+1 more", "+3 more", "Sun"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			tr := locale.New(tt.lang)
			assert.Equal(t, tt.placeholder, tr.PlaceholderTitle())
			assert.Equal(t, tt.more1, tr.MoreLabel(1))
			assert.Equal(t, tt.more3, tr.MoreLabel(3))
			assert.Equal(t, tt.firstLabel, tr.WeekdayLabels(time.Sunday)[0])
		})
	}
}

func TestTranslator_MissingKeyReturnsKey(t *testing.T) {
	tr := locale.New("en")
	assert.Equal(t, "no_such_key", tr.Msg("no_such_key"))
}

func TestTranslator_SetLanguage(t *testing.T) {
	tr := locale.New("en")
	tr.SetLanguage("fr")
	assert.Equal(t, "Nouveau rendez-vous", tr.PlaceholderTitle())
	assert.Equal(t, "fr", tr.Tag().String())
}

func TestWeekdayLabels_Rotation(t *testing.T) {
	tr := locale.New("en")

	sunday := tr.WeekdayLabels(time.Sunday)
	monday := tr.WeekdayLabels(time.Monday)

	require.Len(t, sunday, config.DaysPerWeek)
	require.Len(t, monday, config.DaysPerWeek)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, sunday)
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, monday)
}

func TestFirstDayOfWeek(t *testing.T) {
	tests := []struct {
		tag  string
		want time.Weekday
	}{
		{"en", time.Sunday}, // Likely region US
		{"en-US", time.Sunday},
		{"en-GB", time.Monday},
		{"fr", time.Monday},
		{"fr-CA", time.Sunday},
		{"de-DE", time.Monday},
		{"ja", time.Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, locale.FirstDayOfWeek(language.MustParse(tt.tag)))
		})
	}
}

func TestResolveWeekStart(t *testing.T) {
	tr := locale.New("fr")

	assert.Equal(t, time.Sunday, tr.ResolveWeekStart("Sunday"), "Explicit setting wins over locale")
	assert.Equal(t, time.Monday, tr.ResolveWeekStart("monday"))
	assert.Equal(t, time.Monday, tr.ResolveWeekStart(""), "Empty setting follows the locale")
	assert.Equal(t, time.Sunday, tr.ResolveWeekStart(" SUNDAY "), "Settings are trimmed and case-insensitive")
	assert.Equal(t, time.Monday, tr.ResolveWeekStart("wednesday"), "Unknown setting follows the locale")

	tr.SetLanguage("en-US")
	assert.Equal(t, time.Sunday, tr.ResolveWeekStart(""))
}
