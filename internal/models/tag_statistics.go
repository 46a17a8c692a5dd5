package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TagUsage counts where one tag appears. OpenTasks excludes done and
// archived tasks.
type TagUsage struct {
	Total     int `json:"total"`
	Notes     int `json:"notes"`
	Tasks     int `json:"tasks"`
	OpenTasks int `json:"open_tasks"`
}

// TagStatistics is the per-user rollup maintained by the tag analyzer. A
// tainted record is stale and queued for recalculation; AnalysisVersion
// guards against an older analysis overwriting a newer one.
type TagStatistics struct {
	UserID          uuid.UUID           `json:"user_id"`
	Usage           map[string]TagUsage `json:"tag_stats"`
	Tainted         bool                `json:"tainted"`
	LastAnalyzedAt  *time.Time          `json:"last_analyzed_at,omitempty"`
	AnalysisVersion int                 `json:"analysis_version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// PendingTagStatistics is what a user without an analysis yet sees.
func PendingTagStatistics(userID uuid.UUID) *TagStatistics {
	return &TagStatistics{UserID: userID, Usage: map[string]TagUsage{}, Tainted: true}
}

// Ranked returns tag names by descending total, ties broken by name.
func (s *TagStatistics) Ranked() []string {
	names := make([]string, 0, len(s.Usage))
	for name := range s.Usage {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.Usage[names[i]].Total, s.Usage[names[j]].Total
		if a != b {
			return a > b
		}
		return names[i] < names[j]
	})
	return names
}
