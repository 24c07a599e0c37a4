package scheduling

import "github.com/oakfield-health/strikeplan/pkg/core/model"

// ResolvedShiftConfig is a ServiceJobTypeConfig with every optional override
// collapsed against its service's defaults. Generation and matching code
// read from this, never from the raw config.
type ResolvedShiftConfig struct {
	ServiceID string
	JobTypeID string

	OperatesDays   bool
	OperatesNights bool

	DayWindow   model.ShiftWindow
	NightWindow model.ShiftWindow

	WeekdayAMHeadcount int
	WeekdayPMHeadcount int
	WeekendAMHeadcount int
	WeekendPMHeadcount int

	RequiredSkillIDs []string
}

// EffectiveShiftConfig resolves the override chain for one (service, job
// type) template. Precedence is a single rule: the job-type config wins when
// set, else the service default. Per-shift-type headcounts additionally fall
// back to the config's own single default before the service's.
func EffectiveShiftConfig(cfg model.ServiceJobTypeConfig, svc model.Service) ResolvedShiftConfig {
	baseHeadcount := svc.DefaultHeadcount
	if cfg.DefaultHeadcount != nil {
		baseHeadcount = *cfg.DefaultHeadcount
	}

	resolved := ResolvedShiftConfig{
		ServiceID:          cfg.ServiceID,
		JobTypeID:          cfg.JobTypeID,
		OperatesDays:       boolOr(cfg.OperatesDays, svc.OperatesDays),
		OperatesNights:     boolOr(cfg.OperatesNights, svc.OperatesNights),
		DayWindow:          windowOr(cfg.DayWindow, svc.DayWindow),
		NightWindow:        windowOr(cfg.NightWindow, svc.NightWindow),
		WeekdayAMHeadcount: intOr(cfg.WeekdayAMHeadcount, baseHeadcount),
		WeekdayPMHeadcount: intOr(cfg.WeekdayPMHeadcount, baseHeadcount),
		WeekendAMHeadcount: intOr(cfg.WeekendAMHeadcount, baseHeadcount),
		WeekendPMHeadcount: intOr(cfg.WeekendPMHeadcount, baseHeadcount),
		RequiredSkillIDs:   cfg.RequiredSkillIDs,
	}

	return resolved
}

// Operates reports whether the resolved config staffs the given shift half.
// AM shifts follow the day flag, PM shifts the night flag.
func (r ResolvedShiftConfig) Operates(shift model.ShiftType) bool {
	if shift == model.ShiftAM {
		return r.OperatesDays
	}
	return r.OperatesNights
}

// Headcount returns the original (pre-reduction) headcount for a shift half
// on a weekday or weekend day.
func (r ResolvedShiftConfig) Headcount(shift model.ShiftType, weekend bool) int {
	switch {
	case shift == model.ShiftAM && !weekend:
		return r.WeekdayAMHeadcount
	case shift == model.ShiftPM && !weekend:
		return r.WeekdayPMHeadcount
	case shift == model.ShiftAM && weekend:
		return r.WeekendAMHeadcount
	default:
		return r.WeekendPMHeadcount
	}
}

// Window returns the shift time window for a shift half.
func (r ResolvedShiftConfig) Window(shift model.ShiftType) model.ShiftWindow {
	if shift == model.ShiftAM {
		return r.DayWindow
	}
	return r.NightWindow
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func windowOr(v *model.ShiftWindow, fallback model.ShiftWindow) model.ShiftWindow {
	if v != nil {
		return *v
	}
	return fallback
}
