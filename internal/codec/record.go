package codec

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/study-store/internal/domain/study"
)

// Record field names.
const (
	FieldDescription      = "description"
	FieldOptions          = "options"
	FieldTimesTaken       = "timesTaken"
	FieldTimesEncountered = "timesEncountered"
)

// maxCounter is the largest integer a float64 counter can carry exactly.
const maxCounter = 1<<53 - 1

var (
	// ErrMalformedRecord is returned when a record lacks its description or options list.
	ErrMalformedRecord = errors.New("malformed study record")
	// ErrUnrepresentable is returned for studies a record cannot carry without loss:
	// descriptions that are not valid UTF-8 and counters outside 0..2^53-1.
	ErrUnrepresentable = errors.New("study cannot be stored")
)

// Check reports whether s survives an encode/decode round trip unchanged.
func Check(s study.Study) error {
	if !utf8.ValidString(s.Description) {
		return fmt.Errorf("%w: description %q is not valid UTF-8", ErrUnrepresentable, s.Description)
	}

	for _, option := range s.Options.Options() {
		if !utf8.ValidString(option.Description) {
			return fmt.Errorf("%w: option %q is not valid UTF-8", ErrUnrepresentable, option.Description)
		}

		if !validCounter(option.TimesTaken) || !validCounter(option.TimesEncountered) {
			return fmt.Errorf("%w: counters of option %q must be within 0..%d",
				ErrUnrepresentable, option.Description, maxCounter)
		}
	}

	return nil
}

func validCounter(n int) bool {
	return n >= 0 && int64(n) <= maxCounter
}

// Encode projects a study into its record form.
func Encode(s study.Study) *structpb.Struct {
	options := s.Options.Options()
	values := make([]*structpb.Value, 0, len(options))

	for _, option := range options {
		values = append(values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				FieldDescription:      structpb.NewStringValue(option.Description),
				FieldTimesTaken:       structpb.NewNumberValue(float64(option.TimesTaken)),
				FieldTimesEncountered: structpb.NewNumberValue(float64(option.TimesEncountered)),
			},
		}))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldDescription: structpb.NewStringValue(s.Description),
			FieldOptions:     structpb.NewListValue(&structpb.ListValue{Values: values}),
		},
	}
}

// Decode rebuilds a study from its record form.
// Option entries with missing or mistyped fields are skipped.
func Decode(record *structpb.Struct) (study.Study, error) {
	fields := record.GetFields()

	description, ok := stringField(fields, FieldDescription)
	if !ok {
		return study.Study{}, fmt.Errorf("%w: %s must be a string", ErrMalformedRecord, FieldDescription)
	}

	list, ok := fields[FieldOptions].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return study.Study{}, fmt.Errorf("%w: %s must be a list", ErrMalformedRecord, FieldOptions)
	}

	options := study.NewOptionSet()

	for _, value := range list.ListValue.GetValues() {
		option, ok := decodeOption(value)
		if !ok {
			continue
		}

		options.Add(option)
	}

	return study.Study{
		Description: description,
		Options:     options,
	}, nil
}

func decodeOption(value *structpb.Value) (study.Option, bool) {
	entry, ok := value.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return study.Option{}, false
	}

	fields := entry.StructValue.GetFields()

	description, ok := stringField(fields, FieldDescription)
	if !ok {
		return study.Option{}, false
	}

	timesTaken, ok := counterField(fields, FieldTimesTaken)
	if !ok {
		return study.Option{}, false
	}

	timesEncountered, ok := counterField(fields, FieldTimesEncountered)
	if !ok {
		return study.Option{}, false
	}

	return study.Option{
		Description:      description,
		TimesTaken:       timesTaken,
		TimesEncountered: timesEncountered,
	}, true
}

func stringField(fields map[string]*structpb.Value, name string) (string, bool) {
	kind, ok := fields[name].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}

	return kind.StringValue, true
}

// counterField accepts only whole, non-negative numbers.
func counterField(fields map[string]*structpb.Value, name string) (int, bool) {
	kind, ok := fields[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}

	n := kind.NumberValue
	if n < 0 || n > maxCounter || n != math.Trunc(n) {
		return 0, false
	}

	return int(n), true
}
