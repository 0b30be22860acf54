package patch

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto encodes p as a google.protobuf.Struct with "op", "path" and, unless
// the patch is a removal, "value". Path segments and values go through their
// JSON encoding, so struct fields follow their json tags.
func ToProto(p Patch) (*structpb.Struct, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	if p.Op != OpRemove {
		if _, ok := fields["value"]; !ok {
			fields["value"] = nil
		}
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("convert patch: %w", err)
	}
	return s, nil
}

// ListToProto encodes patches as a google.protobuf.ListValue of structs.
func ListToProto(patches []Patch) (*structpb.ListValue, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(patches))}
	for _, p := range patches {
		s, err := ToProto(p)
		if err != nil {
			return nil, err
		}
		list.Values = append(list.Values, structpb.NewStructValue(s))
	}
	return list, nil
}
