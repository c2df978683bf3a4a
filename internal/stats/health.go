package stats

// Health is the coarse operational verdict shown on the status page.
type Health string

const (
	HealthOK          Health = "OK"
	HealthWarning     Health = "WARNING"
	HealthCritical    Health = "CRITICAL"
	HealthRateLimited Health = "RATE LIMITED"
)

// Queue fill thresholds, in percent.
const (
	criticalQueuePercent   = 80
	warningQueuePercent    = 50
	rateLimitedSentPercent = 10
)

// Color returns the hex color used to render the verdict.
func (h Health) Color() string {
	switch h {
	case HealthCritical:
		return "#f04747"
	case HealthWarning, HealthRateLimited:
		return "#faa61a"
	default:
		return "#43b581"
	}
}

// evaluateHealth grades queue pressure first, then the share of rate-limited
// requests relative to delivered messages.
func evaluateHealth(queued, maxQueue int, rateLimits, sent uint64) Health {
	var percent float64
	if maxQueue > 0 {
		percent = float64(queued) / float64(maxQueue) * 100
	}

	switch {
	case percent > criticalQueuePercent:
		return HealthCritical
	case percent > warningQueuePercent:
		return HealthWarning
	case rateLimits > 0 && sent > 0 && float64(rateLimits)/float64(sent)*100 > rateLimitedSentPercent:
		return HealthRateLimited
	default:
		return HealthOK
	}
}
