// Package timesheet reshapes the
// scoreboard's per_task_usage map into the flattened
// (resource, task, day, hours) rows a downstream timesheet reporter
// consumes, computed straight from the booked usage rather than from
// a separately-submitted report.
package timesheet

import (
	"sort"
	"time"

	"github.com/scriptplanner/scriptplan/internal/calendar"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scoreboard"
)

// Row is one resource's booked hours on one task on one calendar day.
type Row struct {
	Resource model.ResourceID
	Task     model.TaskID
	Day      time.Time // UTC midnight
	Hours    float64
}

// Flatten walks every leaf resource's scoreboard slot by slot and
// accumulates per_task_usage into day-bucketed rows. Rows are sorted by
// (resource, day, task) so the output is deterministic across runs.
func Flatten(idx *calendar.Index, boards map[model.ResourceID]*scoreboard.Scoreboard) []Row {
	type key struct {
		resource model.ResourceID
		task     model.TaskID
		day      time.Time
	}
	totals := make(map[key]int64)

	for resID, sb := range boards {
		for i := 0; i < sb.Size(); i++ {
			usage := sb.PerTaskUsage(i)
			if len(usage) == 0 {
				continue
			}
			day := idx.IdxToDate(i).UTC().Truncate(24 * time.Hour)
			for taskID, seconds := range usage {
				totals[key{resID, taskID, day}] += int64(seconds)
			}
		}
	}

	rows := make([]Row, 0, len(totals))
	for k, seconds := range totals {
		rows = append(rows, Row{
			Resource: k.resource,
			Task:     k.task,
			Day:      k.day,
			Hours:    float64(seconds) / 3600.0,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Resource != rows[j].Resource {
			return rows[i].Resource < rows[j].Resource
		}
		if !rows[i].Day.Equal(rows[j].Day) {
			return rows[i].Day.Before(rows[j].Day)
		}
		return rows[i].Task < rows[j].Task
	})
	return rows
}
