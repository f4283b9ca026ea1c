package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// NDJSONSource reads newline-delimited JSON records from a stream. Lines that
// fail to decode are logged and skipped rather than aborting the replay.
type NDJSONSource struct {
	r io.Reader
}

// NewNDJSONSource wraps r.
func NewNDJSONSource(r io.Reader) *NDJSONSource {
	return &NDJSONSource{r: r}
}

func (s *NDJSONSource) Records(ctx context.Context) <-chan *telemetry.Record {
	out := make(chan *telemetry.Record)
	go func() {
		defer close(out)

		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var rec telemetry.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				slog.WarnContext(ctx, "skipping malformed record",
					slog.Int("line", line),
					slog.String("error", err.Error()))
				continue
			}

			select {
			case out <- &rec:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.ErrorContext(ctx, "record stream read failed",
				slog.String("error", err.Error()))
		}
	}()
	return out
}
