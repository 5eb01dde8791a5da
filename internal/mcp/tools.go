package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/gainslog/internal/models"
	"github.com/meltforce/gainslog/internal/records"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(models.DateLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// filterSessions keeps sessions dated within [start, end] by calendar day.
// A non-empty exercise filter keeps only matching exercises and drops
// sessions left with none.
func filterSessions(sessions []models.WorkoutSession, start, end time.Time, exercise string) []models.WorkoutSession {
	from, to := start.Format(models.DateLayout), end.Format(models.DateLayout)
	needle := records.Normalize(exercise)

	out := []models.WorkoutSession{}
	for _, s := range sessions {
		if s.Date < from || s.Date > to {
			continue
		}
		if needle != "" {
			var kept []models.Exercise
			for _, ex := range s.Exercises {
				if strings.Contains(records.Normalize(ex.Name), needle) {
					kept = append(kept, ex)
				}
			}
			if len(kept) == 0 {
				continue
			}
			s.Exercises = kept
		}
		out = append(out, s)
	}
	return out
}

// --- Tool definitions ---

var toolGetWorkoutHistory = mcp.NewTool("get_workout_history",
	mcp.WithDescription("Retrieve logged workout sessions, most recent first. Each session lists exercises with their sets (weight in kg, reps, completed)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Personal records per exercise: the heaviest weight lifted, with the most reps at that weight, and the date it was set."),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match)")),
)

var toolGetProfileStats = mcp.NewTool("get_profile_stats",
	mcp.WithDescription("Number of completed sessions and personal records."),
)

// --- Tool handlers ---

func (h *handlers) getWorkoutHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.ds.Sessions(ctx)
	if err != nil {
		h.log.Error("mcp get_workout_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(filterSessions(sessions, start, end, req.GetString("exercise", "")))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.PersonalRecords(ctx)
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if needle := records.Normalize(req.GetString("exercise", "")); needle != "" {
		filtered := []models.PersonalRecord{}
		for _, r := range recs {
			if strings.Contains(r.Name, needle) {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}

	result, err := mcp.NewToolResultJSON(recs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProfileStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.ProfileStats(ctx)
	if err != nil {
		h.log.Error("mcp get_profile_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
