package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client used to fetch seed feeds.
var UserAgent = "Go-Agenda/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Agenda"
	AppID             = "com.github.tartampluch.go-agenda"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	SettingsFileName  = "settings.yaml"
	KeyringService    = "com.github.tartampluch.go-agenda"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagStorePass    = "store-seed-password"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the YAML settings file (defaults to the user config dir)"
	FlagDescStore    = "Read the seed feed password from stdin, save it to the OS keyring and exit"
	MsgPasswordSaved = "Seed feed password saved to the OS keyring"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Calendar Defaults
// -----------------------------------------------------------------------------

const (
	// DefaultDisplayCap is the number of events a month cell shows before
	// summarizing the remainder as "+N more".
	DefaultDisplayCap = 2

	DefaultPort       = "18080"
	DefaultLanguage   = "en"
	DefaultViewMode   = "month"
	DefaultStatus     = "pending"
	DefaultColor      = "#3498db"
	FallbackTitle     = "Untitled event"
	FallbackMoreLabel = "+%d more"

	HoursPerDay = 24
	DaysPerWeek = 7
)

// SupportedLanguages defines the list of available languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// View Modes & Week Starts
// -----------------------------------------------------------------------------

const (
	ViewMonth = "month"
	ViewWeek  = "week"
	ViewDay   = "day"

	WeekStartSunday = "sunday"
	WeekStartMonday = "monday"
)

// -----------------------------------------------------------------------------
// Event Statuses
// -----------------------------------------------------------------------------

const (
	StatusConfirmed = "confirmed"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// -----------------------------------------------------------------------------
// Data Formats
// -----------------------------------------------------------------------------

const (
	// DateFormatKey is the canonical join key between event dates and grid cells.
	DateFormatKey = "2006-01-02"
	// TimeFormatClock is the 24-hour, zero-padded wall-clock format.
	TimeFormatClock = "15:04"
	// DateTimeFormatICSLocal is a floating (no TZID) iCalendar DATE-TIME.
	DateTimeFormatICSLocal = "20060102T150405"

	FormatCellKey = "%sT%02d"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Agenda//Engine//EN"
	ICalCalName = "Appointments"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalDomain  = "go-agenda.local"

	// FormatUID expects the event id and ICalDomain.
	FormatUID = "%s@%s"

	ICalStatusConfirmed = "CONFIRMED"
	ICalStatusTentative = "TENTATIVE"
	ICalStatusCancelled = "CANCELLED"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTStamp     = "DTSTAMP"
	PropDuration    = "DURATION"
	PropStatus      = "STATUS"
	PropLocation    = "LOCATION"
	PropDescription = "DESCRIPTION"
	PropColor       = "COLOR"
	PropAttendees   = "X-AGENDA-ATTENDEES"
	PropRefresh     = "REFRESH-INTERVAL"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	DefaultICalRefresh = 1 * time.Hour

	// StubVCalendar is the minimal valid iCalendar object used when the store is empty.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	HTTPTimeout        = 30 * time.Second
	MaxSeedSize        = 16 * 1024 * 1024
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	AddrSeparator      = ":"
	MaxRequestBodySize = 1 << 20

	RouteFeed        = "GET /calendar.ics"
	RouteGrid        = "GET /api/grid"
	RouteListEvents  = "GET /api/events"
	RouteCreateEvent = "POST /api/events"
	RouteGetEvent    = "GET /api/events/{id}"
	RouteUpdateEvent = "PATCH /api/events/{id}"
	RouteDeleteEvent = "DELETE /api/events/{id}"
	RouteNavigate    = "POST /api/navigate/{action}"
	PathParamID      = "id"
	PathParamAction  = "action"

	NavNext     = "next"
	NavPrevious = "previous"
	NavToday    = "today"

	QueryView = "view"
	QueryDate = "date"
	QueryFrom = "from"
	QueryTo   = "to"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderUserAgent       = "User-Agent"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrMalformedDate     = "malformed date"
	ErrMalformedTime     = "malformed time"
	ErrInvalidDuration   = "duration must be a positive number of minutes"
	ErrInvalidStatus     = "unknown event status"
	ErrInvalidTransition = "status transition not allowed"
	ErrNotFound          = "event not found"
	ErrInvalidViewMode   = "unknown view mode"
	ErrInvalidWeekStart  = "unknown week start"
	ErrIndexInsert       = "failed to index event interval"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrICalDecode        = "failed to decode iCalendar data"
	ErrICalEvent         = "failed to read VEVENT"
	ErrConfigPathEmpty   = "configuration error: settings path is empty"
	ErrConfigNil         = "configuration error: settings are nil"
	ErrConfigRead        = "failed to read settings file"
	ErrConfigParse       = "failed to parse settings file"
	ErrConfigWrite       = "failed to write settings file"
	ErrSeedOpen          = "failed to open seed source"
	ErrSeedUserMissing   = "seed_user must be set to store a password"
	ErrKeyring           = "OS keyring access failed"
	ErrInvalidURL        = "invalid URL structure"
	ErrProtocol          = "unsupported protocol scheme (http/https only)"
	ErrFetchRequest      = "failed to create request"
	ErrFetchNetwork      = "network error during fetch"
	ErrFetchStatus       = "server returned unexpected status"
	ErrFetcherMissing    = "no fetcher configured for remote seed"
	ErrSeedImport        = "failed to import seed events"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrPortRequired      = "server port is required"
	ErrPortNumber        = "server port must be a number"
	ErrPortRange         = "server port must be between 1 and 65535"
	ErrBadRequestBody    = "invalid request body"
	ErrUnknownAction     = "unknown navigation action"
	ErrEngineMissing     = "server has no engine"
	ErrClockMissing      = "engine requires a clock"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrConfigDir         = "could not determine user config dir"
	ErrCreateDir         = "could not create app directory"
	ErrAppFailed         = "application failed unexpectedly"
	ErrWriteResp         = "failed to write response body"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleLoad        = "failed to load locale file"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgInternalErr  = "Internal Server Error"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgFeedUpdated    = "Calendar feed updated"
	MsgRequestFailed  = "Request rejected"
	MsgEventCreated   = "Event created"
	MsgEventUpdated   = "Event updated"
	MsgEventDeleted   = "Event deleted"
	MsgMutationDenied = "Mutation rejected"
	MsgEventSkipped   = "Event excluded from placement"
	MsgGridBuilt      = "Grid built"
	MsgGridIndexed    = "Events placed into grid"
	MsgNavigated      = "Reference state changed"
	MsgSeedLoaded     = "Seed events loaded"
	MsgFetchStart     = "Initiating seed feed download"
	MsgFetchBadStatus = "Server returned error status"
	MsgFetchDone      = "Seed feed downloading"
	MsgSkippedVEvent  = "Skipping unreadable VEVENT"
	MsgSkippedExport  = "Skipping event with unreadable date or time in export"
	MsgICalExported   = "Calendar exported"
	MsgICalImported   = "Calendar imported"
	MsgSettingsLoaded = "Settings loaded"
	MsgSettingsInit   = "Settings file created with defaults"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyPlaceholderTitle = "placeholder_title"
	TKeyMoreEvents       = "more_events" // Requires Count
	TKeyWeekdayPrefix    = "weekday_"    // Suffixed with 0 (Sunday) .. 6 (Saturday)
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyPort      = "port"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyEventID   = "event_id"
	LogKeyDate      = "date"
	LogKeyTime      = "time"
	LogKeyMode      = "mode"
	LogKeyCount     = "count"
	LogKeyCells     = "cells"
	LogKeyPlaced    = "placed"
	LogKeySkipped   = "skipped"
	LogKeyRows      = "rows"
	LogKeyOld       = "old"
	LogKeyNew       = "new"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyPath      = "path"
	LogKeyOp        = "op"
	LogKeyStatus    = "status"
	LogKeyURL       = "url"
	LogKeyLength    = "content_length"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyBuilt   = "built_at"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine  = "engine"
	CompStore   = "store"
	CompIndexer = "indexer"
	CompServer  = "server"
	CompMain    = "main"
	CompLocale  = "locale"
	CompConfig  = "config"
	CompFetcher = "fetcher"
)
