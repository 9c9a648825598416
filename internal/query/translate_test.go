package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTranslate_EmptyDescription(t *testing.T) {
	opts, err := Translate(url.Values{})

	require.NoError(t, err)
	assert.Empty(t, opts.Filter)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, opts.Sort)
	assert.Equal(t, bson.M{"__v": 0}, opts.Projection)
	assert.Equal(t, int64(0), opts.Skip)
	assert.Equal(t, DefaultLimit, opts.Limit)
}

func TestTranslate_ControlKeysOnly(t *testing.T) {
	values := url.Values{
		"page":   {"3"},
		"limit":  {"20"},
		"sort":   {"price"},
		"fields": {"name,price"},
	}

	opts, err := Translate(values)

	require.NoError(t, err)
	assert.Empty(t, opts.Filter, "control keys must not become filters")
	assert.Equal(t, bson.D{{Key: "price", Value: 1}}, opts.Sort)
	assert.Equal(t, bson.M{"name": 1, "price": 1}, opts.Projection)
	assert.Equal(t, int64(40), opts.Skip)
	assert.Equal(t, int64(20), opts.Limit)
}

func TestTranslate_EqualityAndComparisonFilters(t *testing.T) {
	values := url.Values{
		"difficulty":  {"easy"},
		"price[gte]":  {"500"},
		"price[lt]":   {"2000"},
		"duration":    {"7"},
		"secret":      {"false"},
		"ratingsAverage[gte]": {"4.5"},
	}

	opts, err := Translate(values)

	require.NoError(t, err)
	assert.Equal(t, "easy", opts.Filter["difficulty"])
	assert.Equal(t, int64(7), opts.Filter["duration"])
	assert.Equal(t, false, opts.Filter["secret"])
	assert.Equal(t, bson.M{"$gte": int64(500), "$lt": int64(2000)}, opts.Filter["price"])
	assert.Equal(t, bson.M{"$gte": 4.5}, opts.Filter["ratingsAverage"])
}

func TestTranslate_ControlKeysWithOperatorSuffixStayControlKeys(t *testing.T) {
	values := url.Values{
		"limit[gte]": {"5"},
		"page[lt]":   {"3"},
		"sort[gte]":  {"x"},
	}

	opts, err := Translate(values)

	require.NoError(t, err)
	assert.Empty(t, opts.Filter, "bracketed control keys must not become filters")
	assert.Equal(t, DefaultLimit, opts.Limit)
	assert.Equal(t, int64(0), opts.Skip)
}

func TestTranslate_RejectsUnsupportedOperator(t *testing.T) {
	for _, op := range []string{"ne", "in", "regex", "where", "expr"} {
		values := url.Values{"price[" + op + "]": {"100"}}

		_, err := Translate(values)

		assert.ErrorIs(t, err, ErrUnsupportedOperator, "operator %q must be rejected", op)
	}
}

func TestTranslate_SortDirections(t *testing.T) {
	opts, err := Translate(url.Values{"sort": {"-price,name"}})

	require.NoError(t, err)
	assert.Equal(t, bson.D{
		{Key: "price", Value: -1},
		{Key: "name", Value: 1},
	}, opts.Sort)
}

func TestTranslate_PaginationDefaultsOnBadInput(t *testing.T) {
	cases := []struct {
		name  string
		page  string
		limit string
		skip  int64
		lim   int64
	}{
		{"non-numeric page", "abc", "10", 0, 10},
		{"zero page", "0", "10", 0, 10},
		{"negative page", "-4", "10", 0, 10},
		{"non-numeric limit", "2", "lots", 100, 100},
		{"negative limit", "2", "-5", 100, 100},
		{"both bad", "x", "y", 0, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := Translate(url.Values{"page": {tc.page}, "limit": {tc.limit}})

			require.NoError(t, err)
			assert.Equal(t, tc.skip, opts.Skip)
			assert.Equal(t, tc.lim, opts.Limit)
			assert.GreaterOrEqual(t, opts.Skip, int64(0))
		})
	}
}

func TestTranslate_SkipIsPageMinusOneTimesLimit(t *testing.T) {
	opts, err := Translate(url.Values{"page": {"5"}, "limit": {"25"}})

	require.NoError(t, err)
	assert.Equal(t, int64(100), opts.Skip)
	assert.Equal(t, int64(25), opts.Limit)
}

func TestTranslate_DuplicateKeyLastWins(t *testing.T) {
	values := url.Values{
		"difficulty": {"easy", "medium"},
		"limit":      {"10", "2"},
	}

	opts, err := Translate(values)

	require.NoError(t, err)
	assert.Equal(t, "medium", opts.Filter["difficulty"])
	assert.Equal(t, int64(2), opts.Limit)
}

func TestTranslate_TripListingScenario(t *testing.T) {
	// ?sort=-price&limit=2&page=1&difficulty=easy
	values, err := url.ParseQuery("sort=-price&limit=2&page=1&difficulty=easy")
	require.NoError(t, err)

	opts, err := Translate(values)

	require.NoError(t, err)
	assert.Equal(t, bson.M{"difficulty": "easy"}, opts.Filter)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}}, opts.Sort)
	assert.Equal(t, int64(0), opts.Skip)
	assert.Equal(t, int64(2), opts.Limit)
}
