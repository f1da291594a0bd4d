package reindex

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Add(50)
	assert.Empty(t, buf.String(), "nothing is reported before Start")

	tracker.Start()
	tracker.Add(5)
	assert.Empty(t, buf.String(), "below the report interval")

	tracker.Add(20)
	assert.Contains(t, buf.String(), "25/100")

	tracker.Add(500)
	assert.Contains(t, buf.String(), "100/100 pages (100.0%)")

	tracker.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 0)
	tracker.Finish()
	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}
