// Package query converts an untrusted URL query description into a safe,
// structured database query: filter, sort, field projection and pagination.
// Each stage is a pure function over the input values; nothing is mutated
// and the description is never persisted.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage  int64 = 1
	DefaultLimit int64 = 100

	defaultSortField = "createdAt"
	versionField     = "__v"
)

// ErrUnsupportedOperator is returned when a nested filter value carries an
// operator outside {gte, gt, lte, lt}. Such input is rejected, never passed
// through to the store.
var ErrUnsupportedOperator = errors.New("unsupported filter operator")

// reserved control keys never become filter predicates
var reservedKeys = map[string]struct{}{
	"page":   {},
	"sort":   {},
	"limit":  {},
	"fields": {},
}

var comparisonOps = map[string]struct{}{
	"gte": {},
	"gt":  {},
	"lte": {},
	"lt":  {},
}

// Options is the structured query consumed by the store: a filter predicate
// tree, a sort key list, a projection and a skip/limit pair.
type Options struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.M
	Skip       int64
	Limit      int64
}

// Translate builds Options from a parsed query string, for example
// ?difficulty=easy&price[lte]=1500&sort=-price,name&fields=name,price&page=2&limit=10.
// Duplicate keys resolve to their last value.
func Translate(values map[string][]string) (Options, error) {
	filter, err := buildFilter(values)
	if err != nil {
		return Options{}, err
	}

	skip, limit := paginate(lastValue(values, "page"), lastValue(values, "limit"))

	return Options{
		Filter:     filter,
		Sort:       buildSort(lastValue(values, "sort")),
		Projection: buildProjection(lastValue(values, "fields")),
		Skip:       skip,
		Limit:      limit,
	}, nil
}

// buildFilter turns every non-reserved key into an equality predicate, or a
// comparison predicate when the key carries a bracketed operator suffix
// (price[gte]=500). Unknown top-level fields pass through as equality filters;
// field allow-lists are the caller's responsibility.
func buildFilter(values map[string][]string) (bson.M, error) {
	filter := bson.M{}
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]

		field, op, ok := splitOperator(key)
		if !ok {
			if _, isReserved := reservedKeys[key]; isReserved {
				continue
			}
			filter[key] = coerceValue(raw)
			continue
		}

		if _, isReserved := reservedKeys[field]; isReserved {
			// control keys stay control keys even with an operator suffix
			continue
		}
		if _, allowed := comparisonOps[op]; !allowed {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
		}

		sub, _ := filter[field].(bson.M)
		if sub == nil {
			sub = bson.M{}
			filter[field] = sub
		}
		sub["$"+op] = coerceValue(raw)
	}
	return filter, nil
}

// splitOperator decomposes "price[gte]" into ("price", "gte", true).
func splitOperator(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

// buildSort parses a comma-separated sort list; a leading '-' means
// descending, and keys tie-break left to right. Default: newest first.
func buildSort(raw string) bson.D {
	if raw == "" {
		return bson.D{{Key: defaultSortField, Value: -1}}
	}
	var sort bson.D
	for _, part := range strings.Split(raw, ",") {
		field := strings.TrimSpace(part)
		if field == "" {
			continue
		}
		direction := 1
		if strings.HasPrefix(field, "-") {
			direction = -1
			field = field[1:]
		}
		if field == "" {
			continue
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}
	if len(sort) == 0 {
		return bson.D{{Key: defaultSortField, Value: -1}}
	}
	return sort
}

// buildProjection parses the fields allow-list. When absent, only the
// internal version field is excluded.
func buildProjection(raw string) bson.M {
	if raw == "" {
		return bson.M{versionField: 0}
	}
	projection := bson.M{}
	for _, part := range strings.Split(raw, ",") {
		field := strings.TrimSpace(part)
		if field == "" {
			continue
		}
		projection[field] = 1
	}
	if len(projection) == 0 {
		return bson.M{versionField: 0}
	}
	return projection
}

// paginate converts 1-based page/limit into a skip/limit pair. Non-numeric or
// non-positive input falls back to defaults; skip is never negative.
func paginate(pageRaw, limitRaw string) (skip, limit int64) {
	page := DefaultPage
	if p, err := strconv.ParseInt(pageRaw, 10, 64); err == nil && p >= 1 {
		page = p
	}
	limit = DefaultLimit
	if l, err := strconv.ParseInt(limitRaw, 10, 64); err == nil && l >= 1 {
		limit = l
	}
	return (page - 1) * limit, limit
}

// coerceValue maps query-string text onto store-native types. There is no
// schema cast layer in front of the store, so numbers and booleans must be
// recognized here for comparisons to behave.
func coerceValue(raw string) interface{} {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if raw == "true" || raw == "false" {
		return raw == "true"
	}
	return raw
}

func lastValue(values map[string][]string, key string) string {
	vals := values[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}
