package dto

import (
	"math"

	"github.com/dustin/go-humanize"

	"github.com/cesargomez89/downtil/internal/domain"
)

// StatusResponse is the JSON body polled by the job page.
type StatusResponse struct {
	Speed         *float64 `json:"speed"`
	ETA           *float64 `json:"eta"`
	FileURL       *string  `json:"file_url"`
	Error         *string  `json:"error"`
	ID            string   `json:"id"`
	Stage         string   `json:"stage"`
	SpeedHuman    string   `json:"speed_human"`
	Progress      float64  `json:"progress"`
	QueuePosition int      `json:"queue_position"`
	Ready         bool     `json:"ready"`
}

func NewStatusResponse(j *domain.Job, queuePosition int) StatusResponse {
	resp := StatusResponse{
		ID:            j.ID,
		Stage:         string(j.Stage),
		Progress:      j.Progress,
		Speed:         j.Speed,
		SpeedHuman:    HumanSpeed(j.Speed),
		QueuePosition: queuePosition,
		Ready:         j.Ready(),
	}
	if j.ETA != nil {
		eta := math.Round(*j.ETA*100) / 100
		resp.ETA = &eta
	}
	if j.FilePath != "" {
		url := "/job/" + j.ID + "/file"
		resp.FileURL = &url
	}
	if j.Error != "" {
		msg := j.Error
		resp.Error = &msg
	}
	return resp
}

// HumanSpeed renders bytes per second, e.g. "1.5 MiB/s". Unknown speed is 0 B/s.
func HumanSpeed(speed *float64) string {
	var bps uint64
	if speed != nil && *speed > 0 {
		bps = uint64(*speed)
	}
	return humanize.IBytes(bps) + "/s"
}

// ErrorResponse is the JSON body for failed API lookups.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness plus queue and registry counters.
type HealthResponse struct {
	Status string `json:"status"`
	Stats  any    `json:"stats"`
}
