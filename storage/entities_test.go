package storage

import (
	"testing"
	"time"

	"taskboard-api/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	scheduled := time.Date(2025, 3, 20, 18, 0, 0, 0, time.UTC)
	task := domain.Task{
		ID:           "t1",
		Title:        "Buy milk",
		Description:  "Two liters",
		Category:     "errands",
		Completed:    true,
		Order:        4,
		ScheduledFor: &scheduled,
		CreatedAt:    created,
	}

	ent := newTaskEntity("user-1", task)
	if ent.PartitionKey != "user-1" || ent.RowKey != "t1" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}

	got := ent.toTask()
	if got.ID != task.ID || got.Title != task.Title || got.Description != task.Description ||
		got.Category != task.Category || got.Completed != task.Completed || got.Order != task.Order {
		t.Fatalf("unexpected task: %#v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected createdAt: %v", got.CreatedAt)
	}
	if got.ScheduledFor == nil || !got.ScheduledFor.Equal(scheduled) {
		t.Fatalf("unexpected scheduledFor: %v", got.ScheduledFor)
	}
}

func TestTaskEntityUnscheduled(t *testing.T) {
	ent := newTaskEntity("user-1", domain.Task{ID: "t1", CreatedAt: time.Now()})
	if ent.ScheduledFor != "" {
		t.Fatalf("expected empty ScheduledFor, got %q", ent.ScheduledFor)
	}
	if ent.toTask().ScheduledFor != nil {
		t.Fatal("expected nil scheduledFor after round trip")
	}
}

func TestTaskUpdateEntityClearSchedule(t *testing.T) {
	ent := newTaskUpdateEntity("user-1", "t1", domain.TaskUpdate{ClearScheduledFor: true})
	if ent.ScheduledFor == nil || *ent.ScheduledFor != "" {
		t.Fatalf("expected empty-string schedule marker, got %v", ent.ScheduledFor)
	}
	if ent.Title != nil || ent.Completed != nil || ent.Order != nil {
		t.Fatalf("untouched fields must stay nil: %#v", ent)
	}
}

func TestTaskUpdateEntityClearWinsOverValue(t *testing.T) {
	when := time.Now()
	ent := newTaskUpdateEntity("user-1", "t1", domain.TaskUpdate{
		ScheduledFor:      &when,
		ClearScheduledFor: true,
	})
	if ent.ScheduledFor == nil || *ent.ScheduledFor != "" {
		t.Fatalf("clear must win over a schedule value, got %v", ent.ScheduledFor)
	}
}

func TestUserKeyNormalizesEmail(t *testing.T) {
	if got := userKey("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestUserEntityRoundTrip(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	user := domain.User{
		ID:           "u1",
		Email:        "Ana@Example.com",
		PasswordHash: "$argon2id$...",
		Confirmed:    true,
		CreatedAt:    created,
	}

	ent := newUserEntity(user)
	if ent.PartitionKey != "ana@example.com" || ent.RowKey != "ana@example.com" {
		t.Fatalf("unexpected keys: %s/%s", ent.PartitionKey, ent.RowKey)
	}
	if ent.Email != "ana@example.com" {
		t.Fatalf("email must be lowercased, got %q", ent.Email)
	}

	got := ent.toUser()
	if got.ID != "u1" || got.PasswordHash != user.PasswordHash || !got.Confirmed {
		t.Fatalf("unexpected user: %#v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected createdAt: %v", got.CreatedAt)
	}
}
