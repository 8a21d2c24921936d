package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestStopInStagesGivesEachStageItsOwnDeadline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var relayErr error
	var ran []string
	stopInStages(logger, 50*time.Millisecond,
		stopStage{"api", func(ctx context.Context) error {
			ran = append(ran, "api")
			// a passthrough that never finishes
			<-ctx.Done()
			return ctx.Err()
		}},
		stopStage{"relay", func(ctx context.Context) error {
			ran = append(ran, "relay")
			relayErr = ctx.Err()
			return nil
		}},
	)

	if len(ran) != 2 || ran[0] != "api" || ran[1] != "relay" {
		t.Fatalf("stages ran %v, want [api relay]", ran)
	}
	if relayErr != nil {
		t.Errorf("relay stage got an expired context: %v", relayErr)
	}
}
