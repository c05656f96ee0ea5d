package pipeline

import (
	"sort"

	"github.com/irfndi/forecast-ai-go/internal/models"
)

// TopByColumn sums valueCol per distinct groupCol label and returns the n
// largest totals, descending. Ties keep the order of first appearance.
func TopByColumn(f *Frame, groupCol, valueCol string, n int) []models.GroupTotal {
	group, ok := f.Column(groupCol)
	values, okv := f.Numeric(valueCol)
	if !ok || !okv || n <= 0 {
		return []models.GroupTotal{}
	}

	pos := make(map[string]int)
	var totals []models.GroupTotal
	for i := 0; i < group.Len(); i++ {
		if group.Missing(i) {
			continue
		}
		label := group.String(i)
		p, seen := pos[label]
		if !seen {
			p = len(totals)
			pos[label] = p
			totals = append(totals, models.GroupTotal{Group: label})
		}
		if v := values[i]; v == v {
			totals[p].Total += v
		}
	}
	sort.SliceStable(totals, func(a, b int) bool { return totals[a].Total > totals[b].Total })
	if len(totals) > n {
		totals = totals[:n]
	}
	return totals
}
