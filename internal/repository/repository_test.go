package repository

import (
	"context"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/testutil"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestUserRepositoryUniqueUsername(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepository(db)

	if err := repo.Create(&model.User{Username: "alice", Password: "h", Role: model.RoleStudent}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(&model.User{Username: "alice", Password: "h", Role: model.RoleTeacher}); err == nil {
		t.Fatal("expected unique constraint violation")
	}

	u, err := repo.FindByUsername("alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if u.Role != model.RoleStudent {
		t.Fatalf("role: got=%q", u.Role)
	}
	if _, err := repo.FindByID(u.ID + 100); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDiscussionRepository(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, "prof", model.RoleTeacher)
	repo := NewDiscussionRepository(db)

	for _, title := range []string{"first", "second"} {
		if err := repo.Create(&model.Discussion{Title: title, Content: "c", TeacherID: teacher.ID}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := repo.FindAll()
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 2 || all[0].Title != "first" || all[1].Title != "second" {
		t.Fatalf("unexpected discussions: %+v", all)
	}
	if all[0].CreatedAt.IsZero() {
		t.Fatal("created_at not assigned")
	}
	if _, err := repo.FindByID(999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMessageRepositoryFindRecent(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, "prof", model.RoleTeacher)
	d := testutil.CreateDiscussion(t, db, teacher.ID, "topic")
	other := testutil.CreateDiscussion(t, db, teacher.ID, "other")
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, content := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		m := &model.Message{Content: content, DiscussionID: d.ID, UserID: teacher.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.CreateAll(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.CreateAll(ctx, &model.Message{Content: "elsewhere", DiscussionID: other.ID, UserID: teacher.ID, CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	recent, err := repo.FindRecent(ctx, d.ID, 5)
	if err != nil {
		t.Fatalf("FindRecent: %v", err)
	}
	want := []string{"m7", "m6", "m5", "m4", "m3"}
	if len(recent) != len(want) {
		t.Fatalf("len: got=%d want=%d", len(recent), len(want))
	}
	for i, m := range recent {
		if m.Content != want[i] {
			t.Fatalf("recent[%d]: got=%q want=%q", i, m.Content, want[i])
		}
	}
}

func TestMessageRepositoryCreateAllIsAtomic(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, "prof", model.RoleTeacher)
	d := testutil.CreateDiscussion(t, db, teacher.ID, "topic")
	repo := NewMessageRepository(db)

	first := &model.Message{Content: "ok", DiscussionID: d.ID, UserID: teacher.ID}
	if err := repo.CreateAll(context.Background(), first); err != nil {
		t.Fatalf("create: %v", err)
	}
	// 复用已存在的主键使第二条插入失败
	dup := &model.Message{ID: first.ID, Content: "dup", DiscussionID: d.ID, UserID: teacher.ID}
	fresh := &model.Message{Content: "fresh", DiscussionID: d.ID, UserID: teacher.ID}
	if err := repo.CreateAll(context.Background(), fresh, dup); err == nil {
		t.Fatal("expected primary key conflict")
	}

	var count int64
	db.Model(&model.Message{}).Where("discussion_id = ?", d.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 row, got %d", count)
	}
}

func TestMessageRepositoryListWithAuthors(t *testing.T) {
	db := testutil.DB(t)
	teacher := testutil.CreateUser(t, db, "prof", model.RoleTeacher)
	student := testutil.CreateUser(t, db, "stud", model.RoleStudent)
	d := testutil.CreateDiscussion(t, db, teacher.ID, "topic")
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := repo.CreateAll(ctx,
		&model.Message{Content: "q", DiscussionID: d.ID, UserID: student.ID, CreatedAt: base},
		&model.Message{Content: "a", DiscussionID: d.ID, UserID: student.ID, IsBot: true, CreatedAt: base.Add(time.Second)},
		&model.Message{Content: "r", DiscussionID: d.ID, UserID: teacher.ID, CreatedAt: base.Add(2 * time.Second)},
	)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rows, err := repo.ListWithAuthors(ctx, d.ID)
	if err != nil {
		t.Fatalf("ListWithAuthors: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len: got=%d", len(rows))
	}
	if rows[0].Content != "q" || rows[0].Username != "stud" || rows[0].IsBot {
		t.Fatalf("row 0: %+v", rows[0])
	}
	if rows[1].Content != "a" || !rows[1].IsBot || rows[1].UserID != student.ID {
		t.Fatalf("row 1: %+v", rows[1])
	}
	if rows[2].Username != "prof" {
		t.Fatalf("row 2: %+v", rows[2])
	}
}

func TestNoopTokenRepository(t *testing.T) {
	repo := NewTokenRepository(nil)
	ctx := context.Background()
	if err := repo.Revoke(ctx, "tok", time.Hour); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	revoked, err := repo.IsRevoked(ctx, "tok")
	if err != nil || revoked {
		t.Fatalf("noop repository must never report revocation: revoked=%v err=%v", revoked, err)
	}
}
