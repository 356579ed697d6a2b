package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

const CurrentSchemaVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r Run) ([]byte, error) {
	if r.SchemaVersion == 0 {
		r.SchemaVersion = CurrentSchemaVersion
	}
	return json.Marshal(r)
}

func DecodeRun(data []byte) (Run, error) {
	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return Run{}, err
	}
	if r.SchemaVersion != CurrentSchemaVersion {
		return Run{}, fmt.Errorf("%w: schema=%d", ErrVersionMismatch, r.SchemaVersion)
	}
	return r, nil
}
