package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformedIndex is returned when an index holds anything but strings.
var ErrMalformedIndex = errors.New("malformed study index")

// MarshalKeys encodes a list of storage keys.
func MarshalKeys(keys []string) ([]byte, error) {
	values := make([]*structpb.Value, 0, len(keys))
	for _, key := range keys {
		values = append(values, structpb.NewStringValue(key))
	}

	data, err := proto.Marshal(&structpb.ListValue{Values: values})
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	return data, nil
}

// UnmarshalKeys decodes a list produced by MarshalKeys.
func UnmarshalKeys(data []byte) ([]string, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	keys := make([]string, 0, len(list.GetValues()))

	for i, value := range list.GetValues() {
		kind, ok := value.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not a string", ErrMalformedIndex, i)
		}

		keys = append(keys, kind.StringValue)
	}

	return keys, nil
}
