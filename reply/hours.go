package reply

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultHoursStart = 9
	defaultHoursEnd   = 18
	defaultTimezone   = "Europe/Kyiv"

	// fallbackOffset is EET without DST, used only when the zone
	// database is unavailable on the host.
	fallbackOffsetHours = 2
)

// Hours is the auto-send window in the owner's local time.
type Hours struct {
	Start int
	End   int
	Loc   *time.Location
}

// NewHours resolves the timezone by name. An unloadable zone degrades
// to a fixed UTC+2 offset so the daemon keeps running.
func NewHours(start, end int, timezone string) Hours {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("working_hours_zone_fallback", "timezone", timezone, "error", err.Error())
		loc = time.FixedZone("EET", fallbackOffsetHours*60*60)
	}
	return Hours{Start: start, End: end, Loc: loc}
}

// HoursFromViper reads the working_hours.* keys.
func HoursFromViper() Hours {
	start := viper.GetInt("working_hours.start")
	end := viper.GetInt("working_hours.end")
	if start == 0 && end == 0 {
		start, end = defaultHoursStart, defaultHoursEnd
	}
	tz := viper.GetString("working_hours.timezone")
	if tz == "" {
		tz = defaultTimezone
	}
	return NewHours(start, end, tz)
}

// Within reports whether now falls inside the window in the owner's
// zone: start <= hour < end.
func (h Hours) Within(now time.Time) bool {
	hour := now.In(h.Loc).Hour()
	return h.Start <= hour && hour < h.End
}
