package domain

// DashboardStats is the aggregate object computed by the backend. The client
// renders it as-is and never recomputes any of the numbers locally.
type DashboardStats struct {
	TotalReceived    int     `json:"total_received"`
	TotalDead        int     `json:"total_dead"`
	TotalDiscarded   int     `json:"total_discarded"`
	TotalProduced    int     `json:"total_produced"`
	TotalDistributed int     `json:"total_distributed"`
	SurvivalRate     float64 `json:"survival_rate"`
	TotalInNursery   int     `json:"total_in_nursery"`
}
