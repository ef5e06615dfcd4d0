package schedule

import (
	"fmt"
	"iter"
	"time"

	"github.com/raushanprabhakar1/voice-agent/internal/models"
)

// Template is the ordered set of times-of-day offered each day.
type Template []string

// Validate checks every entry is a well-formed HH:MM time and there are no
// duplicates.
func (t Template) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("slot template is empty")
	}
	seen := make(map[string]bool, len(t))
	for _, entry := range t {
		normalized, ok := NormalizeTime(entry)
		if !ok {
			return fmt.Errorf("invalid template time %q: expected HH:MM", entry)
		}
		if seen[normalized] {
			return fmt.Errorf("duplicate template time %q", normalized)
		}
		seen[normalized] = true
	}
	return nil
}

// Contains reports whether hhmm (normalized) is one of the offered times.
func (t Template) Contains(hhmm string) bool {
	normalized, ok := NormalizeTime(hhmm)
	if !ok {
		return false
	}
	for _, entry := range t {
		if other, ok := NormalizeTime(entry); ok && other == normalized {
			return true
		}
	}
	return false
}

// Calendar enumerates bookable slots over a horizon. It is stateless: the
// confirmed snapshot is handed in by the caller, so concurrent use is safe.
type Calendar struct {
	template    Template
	horizonDays int
}

// New builds a calendar. A nil template falls back to the default daily
// template, a non-positive horizon to the default horizon.
func New(template Template, horizonDays int) *Calendar {
	if len(template) == 0 {
		template = Template(models.DefaultSlotTemplate)
	}
	if horizonDays < 1 {
		horizonDays = models.DefaultHorizonDays
	}
	normalized := make(Template, 0, len(template))
	for _, entry := range template {
		if hhmm, ok := NormalizeTime(entry); ok {
			normalized = append(normalized, hhmm)
		}
	}
	return &Calendar{template: normalized, horizonDays: horizonDays}
}

// Template returns the normalized daily template in offer order.
func (c *Calendar) Template() Template {
	return c.template
}

// HorizonDays returns the number of days slots are enumerated for.
func (c *Calendar) HorizonDays() int {
	return c.horizonDays
}

// AvailableSlots yields candidate slots from ref forward, in (day, template)
// order, skipping any slot whose key appears in confirmed. The sequence is
// lazy and restartable; callers wanting only the first N can break early.
func (c *Calendar) AvailableSlots(ref time.Time, confirmed KeySet) iter.Seq[models.Slot] {
	return func(yield func(models.Slot) bool) {
		for offset := 0; offset < c.horizonDays; offset++ {
			date := ref.AddDate(0, 0, offset).Format(dateLayout)
			for _, hhmm := range c.template {
				key := Key(date, hhmm)
				if _, taken := confirmed[key]; taken {
					continue
				}
				if !yield(models.Slot{Date: date, Time: hhmm, DatetimeKey: key}) {
					return
				}
			}
		}
	}
}

// CollectAvailable materializes the availability sequence into a slice.
func (c *Calendar) CollectAvailable(ref time.Time, confirmed KeySet) []models.Slot {
	slots := make([]models.Slot, 0, c.horizonDays*len(c.template))
	for slot := range c.AvailableSlots(ref, confirmed) {
		slots = append(slots, slot)
	}
	return slots
}
