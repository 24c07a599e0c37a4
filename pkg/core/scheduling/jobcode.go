package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/oakfield-health/strikeplan/pkg/core/model"
)

// JobCode builds the human-readable code for one generated position.
// The code is a pure function of its inputs, so regenerating a scenario
// produces identical codes for identical slots.
//
// Shape: <dept initials>-<hospital>-<service>-<jobtype>-<yyyymmdd>-<shift>-<seq>
// e.g. "IC-OGH-ICU-RN-20250601-AM-02".
func JobCode(deptName, hospitalCode, serviceCode, jobTypeCode string, date time.Time, shift model.ShiftType, sequence int) string {
	return fmt.Sprintf("%s-%s-%s-%s-%s-%s-%02d",
		initials(deptName),
		strings.ToUpper(hospitalCode),
		strings.ToUpper(serviceCode),
		strings.ToUpper(jobTypeCode),
		date.Format("20060102"),
		shift,
		sequence,
	)
}

// initials reduces a department name to the upper-cased first letter of each
// word, e.g. "Intensive Care" -> "IC". Single-word names keep one letter.
func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			b.WriteRune(r)
			break
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return strings.ToUpper(b.String())
}
