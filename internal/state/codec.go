package state

import (
	"encoding/json"
	"fmt"
)

// recordVersion is the envelope version written by encodeRecord.
const recordVersion = 1

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// encodeRecord wraps v in the versioned envelope.
func encodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: recordVersion, Data: data})
}

// decodeRecord accepts both the envelope and the bare legacy object.
// Legacy highlight/preference blobs are keyed by chat id and legacy
// reminder blobs by field name, so neither can carry both "version"
// and "data" keys.
func decodeRecord(raw []byte, v any) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	_, hasVersion := probe["version"]
	_, hasData := probe["data"]
	if !hasVersion || !hasData {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding legacy record: %w", err)
		}
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Version != recordVersion {
		return fmt.Errorf("unsupported record version %d", env.Version)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decoding record data: %w", err)
	}
	return nil
}
