package internal

import (
	"bytes"
	"log/slog"
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func Test_readBuildSettings(t *testing.T) {
	revision, revisionTime, modified := BuildRevision, BuildRevisionTime, BuildLocalModified
	t.Cleanup(func() {
		BuildRevision, BuildRevisionTime, BuildLocalModified = revision, revisionTime, modified
	})

	readBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc123"},
		{Key: "vcs.time", Value: "2024-05-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "GOOS", Value: "linux"},
	})

	if BuildRevision != "abc123" {
		t.Errorf("got revision %q, want %q", BuildRevision, "abc123")
	}

	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !BuildRevisionTime.Equal(want) {
		t.Errorf("got revision time %v, want %v", BuildRevisionTime, want)
	}

	if BuildLocalModified != "true" {
		t.Errorf("got local modified %q, want %q", BuildLocalModified, "true")
	}

	t.Run("ok, invalid time is ignored", func(t *testing.T) {
		readBuildSettings([]debug.BuildSetting{{Key: "vcs.time", Value: "yesterday"}})
		if !BuildRevisionTime.Equal(want) {
			t.Errorf("got revision time %v, want %v", BuildRevisionTime, want)
		}
	})

	t.Run("ok, logged as group", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(slog.NewTextHandler(&buf, nil)).Info("starting", BuildAttr())

		if !strings.Contains(buf.String(), "build.revision=abc123") {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})
}
