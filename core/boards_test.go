package core

import (
	"context"
	"errors"
	"testing"

	"shareboard/domain"
)

func TestBoardCapAndDuplicateTitle(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")

	for _, title := range domain.BoardTitles() {
		if _, err := svc.CreateBoard(context.Background(), alice.ID, title, ""); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	if _, err := svc.CreateBoard(context.Background(), alice.ID, domain.TitleWork, ""); !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("fourth board: expected ErrCapacityExceeded, got %v", err)
	}

	bob := seedUser(db, "bob")
	if _, err := svc.CreateBoard(context.Background(), bob.ID, domain.TitleWork, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateBoard(context.Background(), bob.ID, domain.TitleWork, ""); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate title: expected ErrAlreadyExists, got %v", err)
	}
}

func TestDeleteBoardFreesSlot(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")

	for _, title := range domain.BoardTitles() {
		if _, err := svc.CreateBoard(context.Background(), alice.ID, title, ""); err != nil {
			t.Fatalf("create %q: %v", title, err)
		}
	}
	if err := svc.DeleteBoard(context.Background(), alice.ID, domain.TitleLeisure); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.CreateBoard(context.Background(), alice.ID, domain.TitleLeisure, "again"); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestAvailableTitles(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	seedBoard(db, alice.ID, domain.TitleWork)

	free, err := svc.AvailableTitles(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(free) != 2 || free[0] != domain.TitleAcademic || free[1] != domain.TitleLeisure {
		t.Fatalf("unexpected free titles: %v", free)
	}

	seedBoard(db, alice.ID, domain.TitleAcademic)
	seedBoard(db, alice.ID, domain.TitleLeisure)
	free, err = svc.AvailableTitles(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(free) != 0 {
		t.Fatalf("expected no free titles at cap, got %v", free)
	}
}

func TestUpdateBoardDescription(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	board := seedBoard(db, alice.ID, domain.TitleWork)

	if err := svc.UpdateBoardDescription(context.Background(), alice.ID, domain.TitleWork, "sprint stuff"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := db.boards[board.ID]; got.Description != "sprint stuff" {
		t.Fatalf("description not applied: %q", got.Description)
	}
	if err := svc.UpdateBoardDescription(context.Background(), alice.ID, domain.TitleAcademic, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing board: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteBoardKeepsSharedTasksAlive(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)

	private := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "private")
	shared := mustCreateTask(t, svc, alice.ID, domain.TitleWork, "shared")
	mustShare(t, svc, alice.ID, shared.ID, "bob", domain.TitleWork)

	if err := svc.DeleteBoard(context.Background(), alice.ID, domain.TitleWork); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if _, ok := db.tasks[private.ID]; ok {
		t.Fatalf("unshared task survived board deletion")
	}
	got, ok := db.tasks[shared.ID]
	if !ok {
		t.Fatalf("shared task deleted with board")
	}
	if got.BoardID != nil {
		t.Fatalf("shared task still attached to deleted board")
	}
	// Bob keeps the task through his recorded destination.
	assertOrder(t, boardOrder(t, svc, bob.ID, domain.TitleWork), []int64{shared.ID})
}

func TestDeleteBoardDropsInboundShares(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{TitleFallback: true})
	alice := seedUser(db, "alice")
	bob := seedUser(db, "bob")
	seedBoard(db, alice.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleWork)

	task := mustCreateTask(t, svc, bob.ID, domain.TitleWork, "from bob")
	mustShare(t, svc, bob.ID, task.ID, "alice", domain.TitleWork)

	if err := svc.DeleteBoard(context.Background(), alice.ID, domain.TitleWork); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if _, ok := db.shares[[2]int64{task.ID, alice.ID}]; ok {
		t.Fatalf("inbound share survived the destination board")
	}
	// The author's copy is untouched; even with the fallback on, nothing
	// resurfaces for alice.
	assertOrder(t, boardOrder(t, svc, bob.ID, domain.TitleWork), []int64{task.ID})
	views, err := svc.Views(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	for _, v := range views {
		if len(v.Tasks) != 0 {
			t.Fatalf("task resurfaced in %q", v.Board.Title)
		}
	}
}

func TestBoardTitlesByUsername(t *testing.T) {
	db := newFakeDB()
	svc := newTestService(db, Config{})
	bob := seedUser(db, "bob")
	seedBoard(db, bob.ID, domain.TitleWork)
	seedBoard(db, bob.ID, domain.TitleLeisure)

	titles, err := svc.BoardTitlesByUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("titles: %v", err)
	}
	if len(titles) != 2 || titles[0] != domain.TitleWork || titles[1] != domain.TitleLeisure {
		t.Fatalf("unexpected titles: %v", titles)
	}
	if _, err := svc.BoardTitlesByUsername(context.Background(), "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown user: expected ErrNotFound, got %v", err)
	}
}
