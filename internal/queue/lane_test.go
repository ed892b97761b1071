package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"virtual_queue/internal/models"
)

func TestReleaseBurst(t *testing.T) {
	tests := []struct {
		rate float64
		tick time.Duration
		want int
	}{
		{60, time.Second, 1},
		{60, 5 * time.Second, 5},
		{30, 5 * time.Second, 2},
		{1, 5 * time.Second, 1},
		{0.5, time.Second, 1},
		{600, 10 * time.Second, 100},
	}
	for _, tt := range tests {
		q := &models.Queue{ReleaseRatePerMinute: tt.rate}
		assert.Equal(t, tt.want, releaseBurst(q, tt.tick), "rate %v tick %v", tt.rate, tt.tick)
	}
}

func TestServiceStatsMovingMean(t *testing.T) {
	var s serviceStats
	assert.Equal(t, time.Minute, s.mean(time.Minute))

	s.add(10 * time.Second)
	s.add(20 * time.Second)
	assert.Equal(t, 15*time.Second, s.mean(time.Minute))

	for range statsWindow {
		s.add(4 * time.Second)
	}
	assert.Equal(t, 4*time.Second, s.mean(time.Minute), "old samples fall out of the window")

	s.add(-time.Second)
	assert.Less(t, s.mean(0), 4*time.Second)
}
