package dto

import (
	"testing"

	"github.com/cesargomez89/downtil/internal/domain"
)

func TestNewStatusResponse(t *testing.T) {
	speed := 1536.0
	eta := 12.3456
	j := &domain.Job{
		ID:       "j1",
		Stage:    domain.StageDownloading,
		Progress: 42.5,
		Speed:    &speed,
		ETA:      &eta,
	}

	resp := NewStatusResponse(j, 3)
	if resp.ETA == nil || *resp.ETA != 12.35 {
		t.Errorf("Expected eta 12.35, got %v", resp.ETA)
	}
	if resp.SpeedHuman != "1.5 KiB/s" {
		t.Errorf("Expected 1.5 KiB/s, got %s", resp.SpeedHuman)
	}
	if resp.QueuePosition != 3 {
		t.Errorf("Expected queue position 3, got %d", resp.QueuePosition)
	}
	if resp.Ready || resp.FileURL != nil || resp.Error != nil {
		t.Errorf("Expected not ready without file or error, got %+v", resp)
	}
}

func TestNewStatusResponseReady(t *testing.T) {
	j := &domain.Job{ID: "j1", Stage: domain.StageReady, Progress: 100, FilePath: "/tmp/x.mp4"}

	resp := NewStatusResponse(j, 0)
	if !resp.Ready {
		t.Error("Expected ready")
	}
	if resp.FileURL == nil || *resp.FileURL != "/job/j1/file" {
		t.Errorf("Expected file url /job/j1/file, got %v", resp.FileURL)
	}
	if resp.ETA != nil {
		t.Errorf("Expected nil eta, got %v", *resp.ETA)
	}
}

func TestNewStatusResponseError(t *testing.T) {
	j := &domain.Job{ID: "j1", Stage: domain.StageError, Error: "boom"}

	resp := NewStatusResponse(j, 0)
	if resp.Ready {
		t.Error("Expected not ready")
	}
	if resp.Error == nil || *resp.Error != "boom" {
		t.Errorf("Expected error boom, got %v", resp.Error)
	}
}

func TestHumanSpeed(t *testing.T) {
	if got := HumanSpeed(nil); got != "0 B/s" {
		t.Errorf("Expected 0 B/s, got %s", got)
	}
	v := 100.0
	if got := HumanSpeed(&v); got != "100 B/s" {
		t.Errorf("Expected 100 B/s, got %s", got)
	}
}
