package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatePlusMonth_ClampsToMonthEnd(t *testing.T) {
	jan31 := NewDateYMD(2024, 1, 31)
	got := Plus(NewDate(jan31), NewDuration(Duration{Months: 1}))
	require.Equal(t, KindDate, got.Kind())
	assert.Equal(t, "2024-02-29", got.AsDate().String()) // 2024 is a leap year
}

func TestDateMinusDate_YieldsNominalDuration(t *testing.T) {
	d1 := NewDate(NewDateYMD(2024, 1, 1))
	d2 := NewDate(NewDateYMD(2024, 3, 15))
	got := Minus(d2, d1)
	require.Equal(t, KindDuration, got.Kind())
	dur := got.AsDuration()
	assert.Equal(t, int64(2), dur.Months)
	assert.Equal(t, int64(14), dur.Days)
}

func TestTruncate_Week_GoesToMonday(t *testing.T) {
	// 2024-01-31 is a Wednesday.
	d := NewDateYMD(2024, 1, 31)
	truncated, err := TruncateTime(UnitWeek, d.Time())
	require.NoError(t, err)
	assert.Equal(t, "Monday", truncated.Weekday().String())
}

func TestTruncate_InvalidUnit(t *testing.T) {
	_, err := TruncateTime("fortnight", NewDateYMD(2024, 1, 1).Time())
	assert.ErrorIs(t, err, ErrInvalidUnit)
}

func TestNewGeographicPoint_RangeChecksCoordinates(t *testing.T) {
	_, err := NewGeographicPoint(0, 91)
	assert.ErrorIs(t, err, ErrInvalidPoint)

	p, err := NewGeographicPoint(-122.4, 37.8)
	require.NoError(t, err)
	assert.Equal(t, CRSWGS84, p.CRS)
}

func TestPointShape_FallsThroughToMapWhenInvalid(t *testing.T) {
	_, ok := pointShape(map[string]any{"latitude": 95.0, "longitude": 0.0})
	assert.False(t, ok, "out-of-range point shape should fall through to a generic map, not error")
}

func TestDurationRoundTrip_ISOFormat(t *testing.T) {
	d, err := ParseISODuration("P1Y2M3DT4H5M6S")
	require.NoError(t, err)
	assert.Equal(t, int64(14), d.Months)
	assert.Equal(t, int64(3), d.Days)
	assert.Equal(t, int64(4*3600+5*60+6), d.Seconds)
	assert.Equal(t, "P1Y2M3DT4H5M6S", d.String())
}

func TestFromNative_PointShapeDetection(t *testing.T) {
	v, err := FromNative(map[string]any{"x": 1.0, "y": 2.0})
	require.NoError(t, err)
	assert.Equal(t, KindPoint, v.Kind())
}

func TestFromNative_RoundTripsScalars(t *testing.T) {
	for _, native := range []any{nil, true, int64(42), 3.14, "hi"} {
		v, err := FromNative(native)
		require.NoError(t, err)
		assert.Equal(t, native, v.ToNative())
	}
}
