package store

import (
	"fmt"

	"github.com/roach88/mixer/internal/ir"
)

// marshalPayload converts an IRObject to canonical JSON TEXT for storage.
func marshalPayload(payload ir.IRObject) (string, error) {
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back into an IRObject.
func unmarshalPayload(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal payload: expected object, got %T", v)
	}
	return obj, nil
}

// toSQLIteration narrows an iteration for the driver, which rejects uint64
// values with the high bit set.
func toSQLIteration(iteration uint64) (int64, error) {
	if iteration > 1<<63-1 {
		return 0, fmt.Errorf("iteration %d exceeds the storable range", iteration)
	}
	return int64(iteration), nil
}
