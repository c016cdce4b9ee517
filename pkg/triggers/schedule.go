package triggers

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a scheduled trigger cannot be expressed as a cron schedule.
var ErrInvalidSchedule = errors.New("invalid schedule configuration")

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronExpression compiles a scheduled trigger's config into a standard
// 5-field cron expression. Monthly schedules fire on the first day of the month.
func CronExpression(c models.TriggerConfig) (string, error) {
	if !IsClock(c.Time) {
		return "", fmt.Errorf("%w: time %q", ErrInvalidSchedule, c.Time)
	}

	hour, minute, _ := strings.Cut(c.Time, ":")
	h, _ := strconv.Atoi(hour)
	m, _ := strconv.Atoi(minute)

	var expr string

	switch c.Frequency {
	case models.FrequencyDaily:
		expr = fmt.Sprintf("%d %d * * *", m, h)
	case models.FrequencyWeekly:
		dow, err := daysOfWeek(c.Days)
		if err != nil {
			return "", err
		}

		expr = fmt.Sprintf("%d %d * * %s", m, h, dow)
	case models.FrequencyMonthly:
		expr = fmt.Sprintf("%d %d 1 * *", m, h)
	default:
		return "", fmt.Errorf("%w: frequency %q", ErrInvalidSchedule, c.Frequency)
	}

	if _, err := cronParser.Parse(expr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	return expr, nil
}

// NextRun returns when a scheduled trigger fires next after from, in from's location.
func NextRun(c models.TriggerConfig, from time.Time) (time.Time, error) {
	expr, err := CronExpression(c)
	if err != nil {
		return time.Time{}, err
	}

	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	return schedule.Next(from), nil
}

func daysOfWeek(days []string) (string, error) {
	if len(days) == 0 {
		return "", fmt.Errorf("%w: weekly schedule needs at least one day", ErrInvalidSchedule)
	}

	nums := make([]int, 0, len(days))

	for _, d := range normalizeDays(days) {
		n := slices.Index(models.Weekdays, d)
		if n < 0 {
			return "", fmt.Errorf("%w: day %q", ErrInvalidSchedule, d)
		}

		if !slices.Contains(nums, n) {
			nums = append(nums, n)
		}
	}

	slices.Sort(nums)

	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		parts = append(parts, strconv.Itoa(n))
	}

	return strings.Join(parts, ","), nil
}
