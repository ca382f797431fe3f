package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/exposcan/internal/database"
	"github.com/nao1215/exposcan/internal/model"
)

func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	runs := []struct {
		id          string
		urls        []string
		interrupted bool
	}{
		{id: "run-old", urls: []string{"https://a.example/.env"}},
		{id: "run-new", urls: []string{"https://a.example/.env", "https://b.example/dump.sql"}, interrupted: true},
	}

	for i, r := range runs {
		started := base.Add(time.Duration(i) * time.Hour)
		list := make([]model.Finding, 0, len(r.urls))
		for _, u := range r.urls {
			list = append(list, model.NewFinding(u, model.RuleExtension, "sensitive extension", 1))
		}
		stats := model.Stats{StartedAt: started, Elapsed: 2 * time.Second, Succeeded: 4, Failed: 1, Findings: len(list)}
		if err := db.SaveRun(context.Background(), model.NewRunReport(r.id, 1, stats, list, r.interrupted)); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	return dir
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewHistoryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dir := seedHistory(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
		wantErr  error
	}{
		{
			name:     "list",
			args:     []string{"--db-dir", dir},
			contains: []string{"Scan history (2 runs)", "run-old", "run-new", "interrupted"},
		},
		{
			name:     "limit",
			args:     []string{"--db-dir", dir, "-l", "1"},
			contains: []string{"Scan history (1 runs)", "run-new"},
			excludes: []string{"run-old"},
		},
		{
			name:     "run findings",
			args:     []string{"--db-dir", dir, "--run", "run-new"},
			contains: []string{"Run run-new", "Findings (2)", "[HIGH] https://a.example/.env", "https://b.example/dump.sql"},
		},
		{
			name:     "new findings only",
			args:     []string{"--db-dir", dir, "--run", "run-new", "--new"},
			contains: []string{"New findings (1)", "https://b.example/dump.sql"},
			excludes: []string{"a.example"},
		},
		{
			name:    "unknown run",
			args:    []string{"--db-dir", dir, "--run", "missing"},
			wantErr: database.ErrRunNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runHistory(t, tt.args...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestHistoryCmdEmpty(t *testing.T) {
	t.Parallel()

	out, err := runHistory(t, "--db-dir", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No scan history found.") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestHistoryCmdNewWithoutRun(t *testing.T) {
	t.Parallel()

	if _, err := runHistory(t, "--db-dir", t.TempDir(), "--new"); err == nil {
		t.Error("expected an error for --new without --run")
	}
}
