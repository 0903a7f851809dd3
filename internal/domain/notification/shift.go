package notification

import (
	"time"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
)

// ShiftName labels one of the three fixed local-time windows.
type ShiftName string

const (
	ShiftMorning ShiftName = "morning"
	ShiftDay     ShiftName = "day"
	ShiftEvening ShiftName = "evening"
)

// Shift boundaries in contact-local hours. Half-open: [start, until).
const (
	morningStart = 0
	dayStart     = 7
	eveningStart = 17
	dayEnd       = 24
)

// TimeShift is a half-open range of contact-local hours carrying the
// per-channel route policy for each severity inside that range.
type TimeShift struct {
	Name      ShiftName                    `json:"name"`
	HourStart int                          `json:"hour_start"`
	UntilHour int                          `json:"until_hour"`
	Policies  map[Severity]ChannelPolicies `json:"policies,omitempty"`
}

// IsInRange reports whether a local hour falls inside the shift.
func (s TimeShift) IsInRange(hour int) bool {
	return hour >= s.HourStart && hour < s.UntilHour
}

// TimeUntilNextShift returns the time remaining in the current shift if the
// given local time falls inside it. Used to derive the default digest release
// ("flush at the next shift boundary") when a message carries no explicit
// digest duration.
func (s TimeShift) TimeUntilNextShift(localNow time.Time) (time.Duration, bool) {
	if !s.IsInRange(localNow.Hour()) {
		return 0, false
	}
	boundary := time.Date(localNow.Year(), localNow.Month(), localNow.Day(),
		0, 0, 0, 0, localNow.Location()).Add(time.Duration(s.UntilHour) * time.Hour)
	return boundary.Sub(localNow), true
}

// PolicyFor returns the configured route for a severity and channel inside
// this shift, defaulting to RouteAllow.
func (s TimeShift) PolicyFor(sev Severity, ch Channel) RoutePolicy {
	if s.Policies == nil {
		return RouteAllow
	}
	return s.Policies[sev].PolicyFor(ch)
}

// TimeShifts is a contact's full severity-by-shift regulation table: three
// fixed shifts (Morning [0,7), Day [7,17), Evening [17,24)), each carrying a
// per-channel policy per severity.
type TimeShifts struct {
	Morning TimeShift `json:"morning"`
	Day     TimeShift `json:"day"`
	Evening TimeShift `json:"evening"`
}

// NewTimeShifts builds a regulation table with the fixed shift boundaries and
// the given per-severity policy tables.
func NewTimeShifts(morning, day, evening map[Severity]ChannelPolicies) TimeShifts {
	return TimeShifts{
		Morning: TimeShift{Name: ShiftMorning, HourStart: morningStart, UntilHour: dayStart, Policies: morning},
		Day:     TimeShift{Name: ShiftDay, HourStart: dayStart, UntilHour: eveningStart, Policies: day},
		Evening: TimeShift{Name: ShiftEvening, HourStart: eveningStart, UntilHour: dayEnd, Policies: evening},
	}
}

// ByHour selects the shift containing the given local hour.
func (ts TimeShifts) ByHour(hour int) TimeShift {
	switch {
	case ts.Morning.IsInRange(hour):
		return ts.Morning
	case ts.Day.IsInRange(hour):
		return ts.Day
	default:
		return ts.Evening
	}
}

// ByTime converts a UTC instant to the contact's local time and selects the
// shift in effect there, returning the shift together with the local time.
func (ts TimeShifts) ByTime(timezoneID string, utcNow time.Time) (TimeShift, time.Time, error) {
	loc, err := time.LoadLocation(timezoneID)
	if err != nil {
		return TimeShift{}, time.Time{}, errors.NewValidationError(
			"INVALID_TIMEZONE", "contact timezone could not be resolved").WithCause(err)
	}
	localNow := utcNow.In(loc)
	return ts.ByHour(localNow.Hour()), localNow, nil
}
