// Package normalize turns the tabular stats.nba.com payload into typed rows.
//
// Upstream responses carry one or more result sets, each a list of column
// headers plus a list of positional rows. A row is zipped with its headers,
// coerced into the target struct and validated; rows that fail are dropped
// without failing the rest of the set.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/metrics"
)

// Result set names used by the stats API
const (
	PlayerIndexSet   = "PlayerIndex"
	PlayerGameLogSet = "PlayerGameLog"
)

// ErrMalformedResponse is returned when the payload does not have the
// resultSets/headers/rowSet shape at all.
var ErrMalformedResponse = errors.New("malformed stats response")

// Response is the top-level upstream document
type Response struct {
	ResultSets []RawResultSet `json:"resultSets"`
}

// RawResultSet is one named table in a Response
type RawResultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

// Find returns the first result set with the given name
func (r *Response) Find(name string) (*RawResultSet, bool) {
	for i := range r.ResultSets {
		if r.ResultSets[i].Name == name {
			return &r.ResultSets[i], true
		}
	}
	return nil, false
}

// Result holds the rows that survived validation
type Result[T any] struct {
	Records []T
	Dropped int
}

var (
	once     sync.Once
	validate *validator.Validate
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Decode parses raw into a Response. A missing resultSets array or a result
// set whose headers or rows are not arrays is ErrMalformedResponse.
func Decode(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.ResultSets == nil {
		return nil, fmt.Errorf("%w: resultSets is missing", ErrMalformedResponse)
	}
	for i, set := range resp.ResultSets {
		if set.Headers == nil || set.RowSet == nil {
			return nil, fmt.Errorf("%w: result set %d (%q) lacks headers or rowSet", ErrMalformedResponse, i, set.Name)
		}
	}
	return &resp, nil
}

// ResultSet decodes raw and materializes the named result set into T.
// A well-formed payload without that set yields an empty result.
func ResultSet[T any](raw []byte, name string) (Result[T], error) {
	resp, err := Decode(raw)
	if err != nil {
		return Result[T]{}, err
	}

	set, ok := resp.Find(name)
	if !ok {
		log.Debug().Str("result_set", name).Msg("Result set not present in response")
		return Result[T]{Records: []T{}}, nil
	}

	result := Rows[T](set.Headers, set.RowSet)
	if result.Dropped > 0 {
		metrics.RecordRowsDropped(name, result.Dropped)
		log.Warn().
			Str("result_set", name).
			Int("dropped", result.Dropped).
			Int("kept", len(result.Records)).
			Msg("Dropped rows that failed validation")
	}
	return result, nil
}

// Rows zips each row with the uppercased headers and keeps the ones that
// decode and validate as T. Input order is preserved.
func Rows[T any](headers []string, rows [][]any) Result[T] {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = strings.ToUpper(h)
	}

	result := Result[T]{Records: make([]T, 0, len(rows))}
	for i, row := range rows {
		record := make(map[string]any, len(keys))
		for j, key := range keys {
			if j < len(row) {
				record[key] = row[j]
			} else {
				record[key] = nil
			}
		}

		value, err := Row[T](record)
		if err != nil {
			log.Debug().Err(err).Int("row", i).Msg("Rejected row")
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, value)
	}
	return result
}

// Row coerces one header-keyed record into T and validates it. Numeric
// strings are accepted for numeric fields and null leaves a field unset.
func Row[T any](record map[string]any) (T, error) {
	var out T

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}

	if err := decoder.Decode(record); err != nil {
		return out, fmt.Errorf("failed to coerce row: %w", err)
	}

	if err := getValidator().Struct(out); err != nil {
		return out, fmt.Errorf("row failed validation: %w", err)
	}

	return out, nil
}
