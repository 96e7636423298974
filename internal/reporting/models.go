package reporting

import "time"

// Range is the reporting window selector.
type Range string

const (
	RangeToday Range = "today"
	Range7     Range = "7"
	Range30    Range = "30"
	Range90    Range = "90"
	Range365   Range = "365"
	RangeAll   Range = "all"
)

// OverallStats summarises every call in the window.
//
// CallsToday, CallsThisWeek and CallsThisMonth ignore the selected range:
// they are counted over the full snapshot against fixed windows.
type OverallStats struct {
	TotalCalls     int `json:"totalCalls"`
	CompletedCalls int `json:"completedCalls"`
	FailedCalls    int `json:"failedCalls"`

	TotalDuration   float64 `json:"totalDuration"`
	AverageDuration float64 `json:"averageDuration"`
	TotalCost       float64 `json:"totalCost"`
	AverageCost     float64 `json:"averageCost"`
	SuccessRate     float64 `json:"successRate"`

	CallsToday     int `json:"callsToday"`
	CallsThisWeek  int `json:"callsThisWeek"`
	CallsThisMonth int `json:"callsThisMonth"`

	// ActiveUsers is the number of distinct user ids in the window.
	ActiveUsers int `json:"activeUsers"`
}

// UserStatistics is one row per active roster user. Users without calls
// still get a row with zero counts and a nil LastCallDate.
type UserStatistics struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`

	TotalCalls     int `json:"totalCalls"`
	CompletedCalls int `json:"completedCalls"`
	FailedCalls    int `json:"failedCalls"`
	CallsThisWeek  int `json:"callsThisWeek"`
	CallsThisMonth int `json:"callsThisMonth"`

	TotalDuration   float64 `json:"totalDuration"`
	AverageDuration float64 `json:"averageDuration"`
	TotalCost       float64 `json:"totalCost"`
	AverageCost     float64 `json:"averageCost"`
	SuccessRate     float64 `json:"successRate"`

	LastCallDate *time.Time `json:"lastCallDate"`
}

// KPIReport is the full output of one aggregation.
type KPIReport struct {
	Range       Range            `json:"range"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Cutoff      time.Time        `json:"cutoff"`
	Overall     OverallStats     `json:"overall"`
	Users       []UserStatistics `json:"users"`

	// UnattributedCalls counts windowed calls whose owner could not be
	// resolved by user id or agent email. They count in Overall only.
	UnattributedCalls []string `json:"unattributedCalls,omitempty"`

	// InvalidTimestamps counts calls dropped for an unreadable start time.
	InvalidTimestamps int `json:"invalidTimestamps"`
}
