package models

// TimerView is a Timer as it appears in a push message. Progress is
// elapsed milliseconds since start and is present only for active timers.
type TimerView struct {
	Timer
	Progress *int64 `json:"progress,omitempty"`
}

type AllTimersMessage struct {
	Type      string      `json:"type"`
	AllTimers []TimerView `json:"all_timers"`
}

type ActiveTimersMessage struct {
	Type         string      `json:"type"`
	ActiveTimers []TimerView `json:"active_timers"`
}

type HealthStatus struct {
	Status            string `json:"status"`
	ActiveConnections int    `json:"active_connections"`
	Timestamp         string `json:"timestamp"`
}
