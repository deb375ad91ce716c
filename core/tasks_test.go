package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"shareboard/domain"
)

func strp(s string) *string { return &s }

func statep(s domain.TaskState) *domain.TaskState { return &s }

func TestCreateTaskRequiresTitleAndBoard(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	seedBoard(db, alice.ID, domain.TitleWork)

	if _, err := svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{}); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("empty title: expected ErrInvalidReference, got %v", err)
	}
	if _, err := svc.CreateTask(context.Background(), alice.ID, domain.TitleLeisure, TaskDraft{Title: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing board: expected ErrNotFound, got %v", err)
	}
}

func TestAuthorUpdatesContent(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	seedBoard(db, alice.ID, domain.TitleWork)
	task := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "old")

	due := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	upd := TaskUpdate{
		Title:       strp("new"),
		Description: strp("details"),
		Due:         &due,
		Color:       strp("#ff0000"),
		URL:         strp("https://example.com"),
		Image:       []byte{1, 2, 3},
	}
	if err := svc.UpdateTask(context.Background(), alice.ID, task.ID, upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	got := db.tasks[task.ID]
	if got.Title != "new" || got.Description != "details" || got.Color != "#ff0000" || got.URL != "https://example.com" {
		t.Fatalf("fields not applied: %+v", got)
	}
	if got.Due == nil || !got.Due.Equal(due) || len(got.Image) != 3 {
		t.Fatalf("due/image not applied: %+v", got)
	}

	if err := svc.UpdateTask(context.Background(), alice.ID, task.ID, TaskUpdate{RemoveImage: true}); err != nil {
		t.Fatalf("remove image: %v", err)
	}
	if got := db.tasks[task.ID]; got.Image != nil {
		t.Fatalf("image not cleared")
	}
}

func TestRecipientMayToggleStateOnly(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)
	task := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "x")
	mustShare(t, svc, alice.ID, task.ID, "bob", domain.TitleWork)

	if err := svc.UpdateTask(context.Background(), bob.ID, task.ID, TaskUpdate{State: statep(domain.StateCompleted)}); err != nil {
		t.Fatalf("state toggle: %v", err)
	}
	if got := db.tasks[task.ID]; got.State != domain.StateCompleted {
		t.Fatalf("state not applied: %v", got.State)
	}

	err := svc.UpdateTask(context.Background(), bob.ID, task.ID, TaskUpdate{Title: strp("hijacked")})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("content edit by recipient: expected ErrPermissionDenied, got %v", err)
	}
	if got := db.tasks[task.ID]; got.Title != "x" {
		t.Fatalf("title changed despite denial: %q", got.Title)
	}
}

func TestContentDeniedBeforeAnyFieldApplied(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)
	task := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "x")
	mustShare(t, svc, alice.ID, task.ID, "bob", domain.TitleWork)

	// Title is checked before state in the mutation order, so the whole
	// request is rejected and the allowed state change is not applied either.
	err := svc.UpdateTask(context.Background(), bob.ID, task.ID, TaskUpdate{
		Title: strp("hijacked"),
		State: statep(domain.StateCompleted),
	})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if got := db.tasks[task.ID]; got.State != domain.StateNotCompleted {
		t.Fatalf("state applied despite denial")
	}
}

func TestUpdateWithoutChangesIsNoop(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)
	task := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "x")
	mustShare(t, svc, alice.ID, task.ID, "bob", domain.TitleWork)

	// A "change" to the current value carries no effect, so it is permitted
	// even for a recipient.
	if err := svc.UpdateTask(context.Background(), bob.ID, task.ID, TaskUpdate{Title: strp("x")}); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
}

func TestNonHolderCannotTouchTask(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	mallory := seedUser(db, "mallory")
	seedBoard(db, alice.ID, domain.TitleWork)
	task := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "x")

	if err := svc.UpdateTask(context.Background(), mallory.ID, task.ID, TaskUpdate{State: statep(domain.StateCompleted)}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("update: expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.MoveTask(context.Background(), mallory.ID, task.ID, domain.TitleWork); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("move: expected ErrPermissionDenied, got %v", err)
	}
	if err := svc.DeleteTask(context.Background(), mallory.ID, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound (no share to drop), got %v", err)
	}
}

func TestSearchTasksSpansAuthoredAndShared(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)

	mustCreateTask(t, svc, bob.ID, domain.TitleWork, "groceries")
	report := mustCreateTask(t, svc, bob.ID, domain.TitleWork, "weekly report")
	shared, err := svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{Title: "notes", Description: "report feedback"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mustShare(t, svc, alice.ID, shared.ID, "bob", domain.TitleWork)

	found, err := svc.SearchTasks(context.Background(), bob.ID, "RePoRt")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 || found[0].ID != report.ID || found[1].ID != shared.ID {
		t.Fatalf("unexpected matches: %+v", found)
	}
}

func TestDueBeforeSortsSoonestFirst(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	seedBoard(db, alice.ID, domain.TitleWork)

	day := func(d int) *time.Time {
		tm := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &tm
	}
	late, _ := svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{Title: "late", Due: day(20)})
	soon, _ := svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{Title: "soon", Due: day(5)})
	svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{Title: "never"})
	svc.CreateTask(context.Background(), alice.ID, domain.TitleWork, TaskDraft{Title: "far", Due: day(30)})

	due, err := svc.DueBefore(context.Background(), alice.ID, time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("due before: %v", err)
	}
	if len(due) != 2 || due[0].ID != soon.ID || due[1].ID != late.ID {
		t.Fatalf("unexpected due list: %+v", due)
	}
}
