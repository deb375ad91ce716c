package api

import (
	"time"

	log "github.com/sirupsen/logrus"

	"shareboard/core"
)

// viewRequestMetrics tracks per-request timings of the merged board view
// endpoint, the hottest read path.
type viewRequestMetrics struct {
	logger         *log.Logger
	start          time.Time
	authDuration   time.Duration
	loadDuration   time.Duration
	encodeDuration time.Duration
	boardsReturned int
	tasksReturned  int
	errorStage     string
}

func newViewRequestMetrics(logger *log.Logger) *viewRequestMetrics {
	return &viewRequestMetrics{
		logger: logger,
		start:  time.Now(),
	}
}

func (m *viewRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *viewRequestMetrics) ObserveLoad(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.loadDuration = duration
}

func (m *viewRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *viewRequestMetrics) SetViewsReturned(views []core.BoardView) {
	m.boardsReturned = len(views)
	m.tasksReturned = 0
	for i := range views {
		m.tasksReturned += len(views[i].Tasks)
	}
}

func (m *viewRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *viewRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"route":           "/api/boards",
		"status":          status,
		"total_ms":        durationToMillis(time.Since(m.start)),
		"boards_returned": m.boardsReturned,
		"tasks_returned":  m.tasksReturned,
	}

	if m.authDuration > 0 {
		fields["auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.loadDuration > 0 {
		fields["load_ms"] = durationToMillis(m.loadDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("boards.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
