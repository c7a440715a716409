package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func at(t *testing.T, loc *time.Location, hour, min int) Clock {
	t.Helper()
	return stubClock{t: time.Date(2026, 3, 9, hour, min, 0, 0, loc)}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("15:55")
	assert.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 15, Minute: 55}, tod)

	_, err = ParseTimeOfDay("24:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("bogus")
	assert.Error(t, err)
}

func TestOvernightSessionWraparound(t *testing.T) {
	loc := chicago(t)
	start := TimeOfDay{Hour: 17}
	flatten := TimeOfDay{Hour: 15, Minute: 55}

	cases := []struct {
		name     string
		hour     int
		min      int
		inWindow bool
	}{
		{"evening after open", 23, 0, true},
		{"overnight", 2, 0, true},
		{"right before flatten", 15, 54, true},
		{"at flatten", 15, 55, false},
		{"maintenance gap", 16, 30, false},
		{"at open", 17, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewScheduler(start, flatten, loc, at(t, loc, tc.hour, tc.min))
			assert.NoError(t, err)
			assert.Equal(t, tc.inWindow, s.InWindow())
		})
	}
}

func TestDaytimeSession(t *testing.T) {
	loc := chicago(t)
	start := TimeOfDay{Hour: 8, Minute: 30}
	flatten := TimeOfDay{Hour: 15}

	s, _ := NewScheduler(start, flatten, loc, at(t, loc, 10, 0))
	assert.True(t, s.InWindow())
	assert.False(t, s.PastFlatten())

	s, _ = NewScheduler(start, flatten, loc, at(t, loc, 15, 0))
	assert.False(t, s.InWindow())
	assert.True(t, s.PastFlatten())

	s, _ = NewScheduler(start, flatten, loc, at(t, loc, 7, 0))
	assert.False(t, s.InWindow())
	assert.False(t, s.PastFlatten(), "before open is not the flatten window")
}

func TestPastFlattenOvernight(t *testing.T) {
	loc := chicago(t)
	start := TimeOfDay{Hour: 17}
	flatten := TimeOfDay{Hour: 15, Minute: 55}

	s, _ := NewScheduler(start, flatten, loc, at(t, loc, 16, 0))
	assert.True(t, s.PastFlatten())

	s, _ = NewScheduler(start, flatten, loc, at(t, loc, 17, 30))
	assert.False(t, s.PastFlatten(), "next session already open")

	s, _ = NewScheduler(start, flatten, loc, at(t, loc, 2, 0))
	assert.False(t, s.PastFlatten())
}

func TestSchedulerValidation(t *testing.T) {
	loc := chicago(t)
	_, err := NewScheduler(TimeOfDay{Hour: 9}, TimeOfDay{Hour: 9}, loc, nil)
	assert.Error(t, err)
	_, err = NewScheduler(TimeOfDay{Hour: 9}, TimeOfDay{Hour: 10}, nil, nil)
	assert.Error(t, err)
}
