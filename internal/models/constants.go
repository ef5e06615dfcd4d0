package models

const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	// DefaultHorizonDays is how far ahead slots are offered.
	DefaultHorizonDays = 7

	// DefaultSessionTTL время жизни состояния сессии в Redis, секунды.
	DefaultSessionTTL = 24 * 60 * 60

	// SummaryQueueSize размер очереди воркера сводок.
	SummaryQueueSize = 1000

	// RateLimitMessages количество обращений в окне на одну сессию.
	RateLimitMessages = 30

	// RateLimitWindow окно ограничения частоты, секунды.
	RateLimitWindow = 60
)

// DefaultSlotTemplate is the daily template offered when the config does not
// override it: 9 AM, 11 AM, 2 PM, 4 PM.
var DefaultSlotTemplate = []string{"09:00", "11:00", "14:00", "16:00"}
