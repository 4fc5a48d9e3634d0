package report

import "time"

// Summary is the aggregate of every result seen for one label.
type Summary struct {
	Label    string    `json:"label" yaml:"label"`
	Count    uint64    `json:"count" yaml:"count"`
	Failures uint64    `json:"failures" yaml:"failures"`
	Canceled uint64    `json:"canceled" yaml:"canceled"`
	TotalMS  float64   `json:"total_ms" yaml:"total_ms"`
	MinMS    float64   `json:"min_ms" yaml:"min_ms"`
	MaxMS    float64   `json:"max_ms" yaml:"max_ms"`
	MeanMS   float64   `json:"mean_ms" yaml:"mean_ms"`
	LastSeen time.Time `json:"last_seen" yaml:"last_seen"`
}

// FailureRate returns failures/count, or 0 for an empty summary.
func (s Summary) FailureRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Count)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
