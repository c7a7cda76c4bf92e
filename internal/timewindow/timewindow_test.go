package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		window models.TimeWindow
		ok     bool
	}{
		{"valid", models.TimeWindow{Date: "20161010", StartTime: "100000", EndTime: "110000"}, true},
		{"end before start is allowed", models.TimeWindow{Date: "20161010", StartTime: "230000", EndTime: "010000"}, true},
		{"short date", models.TimeWindow{Date: "2016101", StartTime: "100000", EndTime: "110000"}, false},
		{"month 13", models.TimeWindow{Date: "20161310", StartTime: "100000", EndTime: "110000"}, false},
		{"dashed date", models.TimeWindow{Date: "2016-10-1", StartTime: "100000", EndTime: "110000"}, false},
		{"hour 24", models.TimeWindow{Date: "20161010", StartTime: "240000", EndTime: "110000"}, false},
		{"long time", models.TimeWindow{Date: "20161010", StartTime: "1000000", EndTime: "110000"}, false},
		{"empty end", models.TimeWindow{Date: "20161010", StartTime: "100000"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.window)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperr.ErrMalformedTimeWindow)
				assert.ErrorIs(t, err, apperr.ErrValidation)
			}
		})
	}
}

func TestBuildRange(t *testing.T) {
	start := time.Date(2016, 10, 30, 18, 30, 0, 0, time.UTC)
	end := time.Date(2016, 11, 2, 22, 0, 0, 0, time.UTC)

	windows, err := BuildRange(start, end)
	require.NoError(t, err)
	require.Len(t, windows, 4)

	assert.Equal(t, models.TimeWindow{Date: "20161030", StartTime: "183000", EndTime: "220000"}, windows[0])
	assert.Equal(t, "20161031", windows[1].Date)
	assert.Equal(t, "20161101", windows[2].Date)
	assert.Equal(t, models.TimeWindow{Date: "20161102", StartTime: "183000", EndTime: "220000"}, windows[3])
}

func TestBuildRangeSingleDay(t *testing.T) {
	start := time.Date(2016, 10, 10, 10, 0, 0, 0, time.UTC)
	windows, err := BuildRange(start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []models.TimeWindow{{Date: "20161010", StartTime: "100000", EndTime: "120000"}}, windows)
}

func TestBuildRangeRejectsInvertedAndHugeRanges(t *testing.T) {
	start := time.Date(2016, 10, 10, 10, 0, 0, 0, time.UTC)

	_, err := BuildRange(start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = BuildRange(start, start.AddDate(2, 0, 0))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestResolve(t *testing.T) {
	explicit := []models.TimeWindow{{Date: "20161010", StartTime: "100000", EndTime: "110000"}}
	start := time.Date(2016, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2016, 1, 3, 10, 0, 0, 0, time.UTC)

	windows, err := Resolve(explicit, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, explicit, windows, "explicit list bypasses expansion")

	windows, err = Resolve(nil, &start, &end)
	require.NoError(t, err)
	assert.Len(t, windows, 3)

	_, err = Resolve(nil, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Resolve([]models.TimeWindow{{Date: "bad"}}, nil, nil)
	assert.ErrorIs(t, err, apperr.ErrMalformedTimeWindow)
}

func TestIsFinished(t *testing.T) {
	event := &models.Event{Dates: []models.TimeWindow{
		{Date: "20161010", StartTime: "100000", EndTime: "235959"},
	}}

	assert.True(t, IsFinished(event, time.Date(2016, 10, 11, 0, 0, 0, 0, time.UTC)))
	assert.False(t, IsFinished(event, time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)))
	assert.False(t, IsFinished(event, time.Date(2016, 10, 10, 23, 59, 59, 0, time.UTC)))

	event.Dates = append(event.Dates, models.TimeWindow{Date: "20161012", StartTime: "100000", EndTime: "110000"})
	assert.False(t, IsFinished(event, time.Date(2016, 10, 11, 0, 0, 0, 0, time.UTC)), "a later window keeps the event running")
	assert.True(t, IsFinished(event, time.Date(2016, 10, 12, 11, 0, 1, 0, time.UTC)))
}
