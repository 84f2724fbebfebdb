package models

// Stats summarizes one aggregated event sequence.
type Stats struct {
	TotalEvents    int              `json:"totalEvents"`
	CriticalEvents int              `json:"criticalEvents"`
	HighEvents     int              `json:"highEvents"`
	Countries      int              `json:"countries"`
	ByCategory     map[Category]int `json:"byCategory"` // only categories actually present
}
