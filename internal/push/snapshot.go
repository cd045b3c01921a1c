package push

import (
	"time"

	"timetrack/internal/models"
)

// BuildAll computes an all_timers snapshot for one user: their timers,
// with progress filled in for the active ones. now is sampled once by the
// caller so every progress value in the snapshot shares one instant.
func BuildAll(userID string, timers []models.Timer, now time.Time) models.AllTimersMessage {
	return models.AllTimersMessage{
		Type:      "all_timers",
		AllTimers: buildViews(userID, timers, now, false),
	}
}

// BuildActive computes an active_timers snapshot: the user's active timers
// only, each with progress.
func BuildActive(userID string, timers []models.Timer, now time.Time) models.ActiveTimersMessage {
	return models.ActiveTimersMessage{
		Type:         "active_timers",
		ActiveTimers: buildViews(userID, timers, now, true),
	}
}

func buildViews(userID string, timers []models.Timer, now time.Time, activeOnly bool) []models.TimerView {
	nowMS := now.UnixMilli()

	views := make([]models.TimerView, 0, len(timers))
	for _, t := range timers {
		if t.OwnerID != userID {
			continue
		}
		if activeOnly && !t.IsActive {
			continue
		}

		view := models.TimerView{Timer: t}
		if t.IsActive {
			progress := nowMS - t.Start
			view.Progress = &progress
		}
		views = append(views, view)
	}
	return views
}
