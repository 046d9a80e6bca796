package postgres

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/freeeve/galcon/internal/model"
)

// encodeTimeline stores a timeline as LZ4-framed JSON. Long matches produce
// thousands of near-identical capture records, which compress well.
func encodeTimeline(events []model.MatchEvent) ([]byte, error) {
	if len(events) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress timeline: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress timeline: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTimeline(data []byte) ([]model.MatchEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("decompress timeline: %w", err)
	}
	var events []model.MatchEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("unmarshal timeline: %w", err)
	}
	return events, nil
}
