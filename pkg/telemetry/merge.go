package telemetry

import (
	"sort"

	"gridwatch/pkg/model"
)

// MergeStability full-outer-joins two stability series on timestep and
// returns rows sorted by timestep. A repeated timestep within one series
// keeps the last value seen.
func MergeStability(allJobs, rlMin []model.StabilitySample) []model.MergedRow {
	rows := make(map[int64]*model.MergedRow, len(allJobs)+len(rlMin))
	row := func(ts int64) *model.MergedRow {
		r, ok := rows[ts]
		if !ok {
			r = &model.MergedRow{Timestep: ts}
			rows[ts] = r
		}
		return r
	}
	for _, s := range allJobs {
		v := s.InstabilityIndex
		row(s.Timestep).AllJobs = &v
	}
	for _, s := range rlMin {
		v := s.InstabilityIndex
		row(s.Timestep).RlMin = &v
	}

	out := make([]model.MergedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestep < out[j].Timestep })
	return out
}
