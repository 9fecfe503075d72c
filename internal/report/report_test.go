package report

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if !regexp.MustCompile(`^run-\d+-[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("unexpected run ID format: %s", id)
	}
	if NewRunID() == id {
		t.Error("expected unique run IDs")
	}
}

func TestRun_Clone(t *testing.T) {
	run := NewRun("/in")
	run.Add(Entry{GroupKey: "jane_doe", VideoCount: 2, OutputPath: "/out/jane_doe_appreciation.mp4"})
	run.Fail("john_smith")

	clone := run.Clone()
	clone.Entries[0].VideoCount = 99
	clone.Failed[0] = "changed"

	if run.Entries[0].VideoCount != 2 {
		t.Error("clone shares entries with original")
	}
	if run.Failed[0] != "john_smith" {
		t.Error("clone shares failed list with original")
	}
}

func TestRun_Duration(t *testing.T) {
	run := NewRun("/in")
	if run.Duration() != 0 {
		t.Error("unfinished run should have zero duration")
	}
	run.StartedAt = time.Now().Add(-time.Second)
	run.Finish()
	if run.Duration() < time.Second {
		t.Errorf("expected at least 1s, got %v", run.Duration())
	}
}

func testRepositories(t *testing.T) map[string]Repository {
	t.Helper()
	sqliteRepo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history", "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(0),
		"sqlite": sqliteRepo,
	}
}

func TestRepository_SaveAndFind(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := NewRun("/clips")
			run.Add(Entry{GroupKey: "jane_doe", VideoCount: 2, OutputPath: "/out/jane_doe_appreciation.mp4"})
			run.Add(Entry{GroupKey: "john_smith", VideoCount: 1, OutputPath: "/out/john_smith_appreciation.mp4", URL: "https://b.s3.r.amazonaws.com/k"})
			run.Fail("amy_lee")
			run.Unclassified = []string{"badname.mp4"}
			run.Finish()

			if err := repo.Save(ctx, run); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := repo.FindByID(ctx, run.ID)
			if err != nil {
				t.Fatalf("FindByID: %v", err)
			}
			if got.InputDir != "/clips" {
				t.Errorf("expected input dir /clips, got %s", got.InputDir)
			}
			if len(got.Entries) != 2 || got.Entries[0].GroupKey != "jane_doe" || got.Entries[1].URL == "" {
				t.Errorf("unexpected entries: %+v", got.Entries)
			}
			if len(got.Failed) != 1 || got.Failed[0] != "amy_lee" {
				t.Errorf("unexpected failed list: %v", got.Failed)
			}
			if len(got.Unclassified) != 1 || got.Unclassified[0] != "badname.mp4" {
				t.Errorf("unexpected unclassified list: %v", got.Unclassified)
			}
			if !got.StartedAt.Equal(run.StartedAt) || !got.FinishedAt.Equal(run.FinishedAt) {
				t.Errorf("timestamps not preserved: %v/%v", got.StartedAt, got.FinishedAt)
			}
		})
	}
}

func TestRepository_SaveReplaces(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := NewRun("/clips")
			run.Add(Entry{GroupKey: "a_b", VideoCount: 1, OutputPath: "x"})
			_ = repo.Save(ctx, run)

			run.Entries = nil
			run.Add(Entry{GroupKey: "c_d", VideoCount: 3, OutputPath: "y"})
			if err := repo.Save(ctx, run); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, _ := repo.FindByID(ctx, run.ID)
			if len(got.Entries) != 1 || got.Entries[0].GroupKey != "c_d" {
				t.Errorf("expected replaced entries, got %+v", got.Entries)
			}
		})
	}
}

func TestRepository_ListAndDelete(t *testing.T) {
	for name, repo := range testRepositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			older := NewRun("/a")
			older.StartedAt = time.Now().Add(-time.Hour)
			newer := NewRun("/b")
			_ = repo.Save(ctx, older)
			_ = repo.Save(ctx, newer)

			runs, err := repo.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(runs) != 2 {
				t.Fatalf("expected 2 runs, got %d", len(runs))
			}
			if runs[0].ID != newer.ID {
				t.Errorf("expected most recent run first, got %s", runs[0].ID)
			}

			if err := repo.Delete(ctx, older.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := repo.FindByID(ctx, older.ID); err != ErrRunNotFound {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
			if err := repo.Delete(ctx, "nonexistent"); err != ErrRunNotFound {
				t.Errorf("expected ErrRunNotFound, got %v", err)
			}
		})
	}
}

func TestOpenSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	repo, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	run := NewRun("/in")
	_ = repo.Save(ctx, run)
	_ = repo.Close()

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, err := reopened.FindByID(ctx, run.ID); err != nil {
		t.Errorf("expected run to survive reopen: %v", err)
	}
}

func TestSummary(t *testing.T) {
	run := NewRun("/in")
	run.Add(Entry{GroupKey: "jane_doe", VideoCount: 2, OutputPath: "/out/jane_doe_appreciation.mp4"})
	run.Add(Entry{GroupKey: "john_smith", VideoCount: 1, OutputPath: "/out/john_smith_appreciation.mp4"})
	run.Fail("amy_lee")

	out := Summary(run)
	for _, want := range []string{
		"Processing complete!",
		"Processed videos for 2 recipients",
		"jane_doe",
		"/out/john_smith_appreciation.mp4",
		"Failed: amy_lee",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTable_URLColumnOnlyWhenUploaded(t *testing.T) {
	plain := RenderTable([]Entry{{GroupKey: "a_b", VideoCount: 1, OutputPath: "o"}})
	if strings.Contains(strings.ToUpper(plain), "URL") {
		t.Errorf("did not expect URL column:\n%s", plain)
	}

	uploaded := RenderTable([]Entry{{GroupKey: "a_b", VideoCount: 1, OutputPath: "o", URL: "https://x/y"}})
	if !strings.Contains(uploaded, "https://x/y") {
		t.Errorf("expected URL in table:\n%s", uploaded)
	}
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	runs := []*Run{
		{ID: "run-2", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + 90*time.Second),
			Entries: []Entry{{GroupKey: "a_b"}, {GroupKey: "c_d"}}, Failed: []string{"e_f"}},
		{ID: "run-1", StartedAt: start, Unclassified: []string{"bad.mp4"}},
	}

	out := RenderRuns(runs)

	for _, want := range []string{"Run", "Produced", "run-2", "run-1", "1m30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "run-2") > strings.Index(out, "run-1") {
		t.Error("expected runs in the given order")
	}
}

func TestMemoryRepository_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(2)
	base := time.Now()

	var ids []string
	for i := 0; i < 3; i++ {
		run := NewRun("/clips")
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, run.ID)
		if err := repo.Save(ctx, run); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	runs, _ := repo.List(ctx)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs kept, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("expected newest two runs, got %s, %s", runs[0].ID, runs[1].ID)
	}
	if _, err := repo.FindByID(ctx, ids[0]); err != ErrRunNotFound {
		t.Errorf("expected oldest run evicted, got %v", err)
	}
}

func TestMemoryRepository_SaveKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(0)
	run := NewRun("/clips")
	if err := repo.Save(ctx, run); err != nil {
		t.Fatal(err)
	}

	run.Add(Entry{GroupKey: "jane_doe"})

	stored, err := repo.FindByID(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Entries) != 0 {
		t.Error("later changes to the run leaked into the stored snapshot")
	}
}
