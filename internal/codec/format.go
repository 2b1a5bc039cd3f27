package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/study-store/internal/domain/study"
)

// Format turns studies into bytes and back.
type Format interface {
	// Name identifies the format in logs.
	Name() string
	// Marshal encodes a study. Studies rejected by Check fail with ErrUnrepresentable.
	Marshal(s study.Study) ([]byte, error)
	// Unmarshal decodes a study, failing when the payload or record is unusable.
	Unmarshal(data []byte) (study.Study, error)
}

var (
	// JSON stores records as protobuf JSON. Used for files on disk.
	//nolint:gochecknoglobals // Stateless format values.
	JSON Format = jsonFormat{}
	// Binary stores records in protobuf wire format. Used for key-value entries.
	//nolint:gochecknoglobals // Stateless format values.
	Binary Format = binaryFormat{}
)

type jsonFormat struct{}

func (jsonFormat) Name() string {
	return "json"
}

func (jsonFormat) Marshal(s study.Study) ([]byte, error) {
	if err := Check(s); err != nil {
		return nil, err
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(Encode(s))
	if err != nil {
		return nil, fmt.Errorf("encode study: %w", err)
	}

	return data, nil
}

func (jsonFormat) Unmarshal(data []byte) (study.Study, error) {
	var record structpb.Struct
	if err := protojson.Unmarshal(data, &record); err != nil {
		return study.Study{}, fmt.Errorf("decode study: %w", err)
	}

	return Decode(&record)
}

type binaryFormat struct{}

func (binaryFormat) Name() string {
	return "binary"
}

func (binaryFormat) Marshal(s study.Study) ([]byte, error) {
	if err := Check(s); err != nil {
		return nil, err
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(Encode(s))
	if err != nil {
		return nil, fmt.Errorf("encode study: %w", err)
	}

	return data, nil
}

func (binaryFormat) Unmarshal(data []byte) (study.Study, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(data, &record); err != nil {
		return study.Study{}, fmt.Errorf("decode study: %w", err)
	}

	return Decode(&record)
}
