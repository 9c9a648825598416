package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"  Sea   Explorer ", "sea-explorer"},
		{"Trip #7: Fjords & Falls!", "trip-7-fjords-falls"},
		{"---", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, slugify(tc.name), tc.name)
	}
}

func TestParseLatLng(t *testing.T) {
	lat, lng, appErr := parseLatLng("34.111745,-118.113491")
	require.Nil(t, appErr)
	assert.InDelta(t, 34.111745, lat, 1e-9)
	assert.InDelta(t, -118.113491, lng, 1e-9)

	for _, bad := range []string{"", "34.1", "34.1,-118.1,7", "north,west"} {
		_, _, appErr := parseLatLng(bad)
		assert.NotNil(t, appErr, bad)
	}
}

func TestUnitFactors(t *testing.T) {
	divisor, multiplier, appErr := unitFactors("mi")
	require.Nil(t, appErr)
	assert.Equal(t, earthRadiusMiles, divisor)
	assert.Equal(t, metersToMiles, multiplier)

	divisor, multiplier, appErr = unitFactors("km")
	require.Nil(t, appErr)
	assert.Equal(t, earthRadiusKm, divisor)
	assert.Equal(t, metersToKm, multiplier)

	_, _, appErr = unitFactors("furlongs")
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "mi or km")
}
