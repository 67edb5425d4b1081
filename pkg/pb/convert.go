package pb

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts any JSON-serialisable value into a Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("value is not a JSON object: %w", err)
	}
	return structpb.NewStruct(m)
}

// FromStruct decodes s into v using v's JSON tags.
func FromStruct(s *structpb.Struct, v any) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// InspectRequest builds the Inspect argument.
func InspectRequest(x, y float64, filter string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"x":      structpb.NewNumberValue(x),
		"y":      structpb.NewNumberValue(y),
		"filter": structpb.NewStringValue(filter),
	}}
}
