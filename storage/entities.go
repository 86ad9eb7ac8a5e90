package storage

import (
	"strings"
	"time"

	"taskboard-api/domain"
)

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// Timestamps are stored as RFC3339 strings; an empty ScheduledFor means the
// task is unscheduled.
type taskEntity struct {
	entityKeys
	Title        string `json:"Title"`
	Description  string `json:"Description"`
	Category     string `json:"Category"`
	Completed    bool   `json:"Completed"`
	Order        int    `json:"Order"`
	ScheduledFor string `json:"ScheduledFor"`
	CreatedAt    string `json:"CreatedAt"`
}

func newTaskEntity(ownerID string, t domain.Task) taskEntity {
	ent := taskEntity{
		entityKeys:  entityKeys{PartitionKey: ownerID, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Completed:   t.Completed,
		Order:       t.Order,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.ScheduledFor != nil {
		ent.ScheduledFor = t.ScheduledFor.UTC().Format(time.RFC3339Nano)
	}
	return ent
}

func (e taskEntity) toTask() domain.Task {
	t := domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Completed:   e.Completed,
		Order:       e.Order,
	}
	if ts, err := time.Parse(time.RFC3339Nano, e.CreatedAt); err == nil {
		t.CreatedAt = ts
	}
	if e.ScheduledFor != "" {
		if ts, err := time.Parse(time.RFC3339Nano, e.ScheduledFor); err == nil {
			t.ScheduledFor = &ts
		}
	}
	return t
}

type taskUpdateEntity struct {
	entityKeys
	Title        *string `json:"Title,omitempty"`
	Description  *string `json:"Description,omitempty"`
	Category     *string `json:"Category,omitempty"`
	Completed    *bool   `json:"Completed,omitempty"`
	Order        *int    `json:"Order,omitempty"`
	ScheduledFor *string `json:"ScheduledFor,omitempty"`
}

func newTaskUpdateEntity(ownerID, taskID string, upd domain.TaskUpdate) taskUpdateEntity {
	ent := taskUpdateEntity{
		entityKeys:  entityKeys{PartitionKey: ownerID, RowKey: taskID},
		Title:       upd.Title,
		Description: upd.Description,
		Category:    upd.Category,
		Completed:   upd.Completed,
		Order:       upd.Order,
	}
	if upd.ClearScheduledFor {
		empty := ""
		ent.ScheduledFor = &empty
	} else if upd.ScheduledFor != nil {
		formatted := upd.ScheduledFor.UTC().Format(time.RFC3339Nano)
		ent.ScheduledFor = &formatted
	}
	return ent
}

type userUpdateEntity struct {
	entityKeys
	Confirmed *bool `json:"Confirmed,omitempty"`
}

type userEntity struct {
	entityKeys
	ID           string `json:"ID"`
	Email        string `json:"Email"`
	PasswordHash string `json:"PasswordHash"`
	Confirmed    bool   `json:"Confirmed"`
	CreatedAt    string `json:"CreatedAt"`
}

func newUserEntity(u domain.User) userEntity {
	key := userKey(u.Email)
	return userEntity{
		entityKeys:   entityKeys{PartitionKey: key, RowKey: key},
		ID:           u.ID,
		Email:        strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		Confirmed:    u.Confirmed,
		CreatedAt:    u.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (e userEntity) toUser() domain.User {
	u := domain.User{
		ID:           e.ID,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		Confirmed:    e.Confirmed,
	}
	if ts, err := time.Parse(time.RFC3339Nano, e.CreatedAt); err == nil {
		u.CreatedAt = ts
	}
	return u
}

func userKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
