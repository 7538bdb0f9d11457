package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
)

// envelope is the {"programs": [...]} wrapper some exports use
type envelope struct {
	Programs []json.RawMessage `json:"programs"`
}

// decodeRecords accepts either a bare JSON array or an envelope object.
// Elements are decoded one by one; an element that does not decode is
// skipped and counted instead of failing the whole payload.
func decodeRecords[T any](body []byte) (records []T, skipped int, err error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return nil, 0, errors.New("empty payload")
	}

	var elements []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &elements); err != nil {
			return nil, 0, err
		}
	} else {
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, 0, err
		}
		elements = env.Programs
	}

	records = make([]T, 0, len(elements))
	for i, raw := range elements {
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			slog.Warn("Skipping undecodable record", "index", i, "error", err)
			skipped++
			continue
		}
		records = append(records, record)
	}
	return records, skipped, nil
}
