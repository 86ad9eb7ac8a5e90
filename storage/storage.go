package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"taskboard-api/domain"
)

// Storage provides access to the underlying persistence mechanisms. Tasks
// are partitioned by owner and users by lowercased email, so every query is
// scoped to one partition and cross-user access is structurally impossible.
type Storage struct {
	taskTable *aztables.Client
	userTable *aztables.Client
	mailQueue *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, usersTable, mailQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	ut := svc.NewClient(usersTable)
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	mq, err := azqueue.NewQueueClientFromConnectionString(connStr, mailQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{taskTable: tt, userTable: ut, mailQueue: mq}, nil
}

// ListTasks retrieves all tasks for the provided owner, ascending by order.
func (s *Storage) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + ownerID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate(err)
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			tasks = append(tasks, ent.toTask())
		}
	}
	domain.SortByOrder(tasks)
	return tasks, nil
}

// GetTask retrieves a single task owned by ownerID.
func (s *Storage) GetTask(ctx context.Context, ownerID, taskID string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, ownerID, taskID, nil)
	if err != nil {
		return domain.Task{}, translate(err)
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	return ent.toTask(), nil
}

// InsertTask persists a newly created task for the owner.
func (s *Storage) InsertTask(ctx context.Context, ownerID string, task domain.Task) error {
	payload, err := json.Marshal(newTaskEntity(ownerID, task))
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return translate(err)
}

// UpdateTask merges a partial update into an existing task. Writes are
// unconditional (ETagAny): the last write wins across sessions.
func (s *Storage) UpdateTask(ctx context.Context, ownerID, taskID string, upd domain.TaskUpdate) error {
	payload, err := json.Marshal(newTaskUpdateEntity(ownerID, taskID, upd))
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	return translate(err)
}

// DeleteTask removes the owner's task.
func (s *Storage) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	_, err := s.taskTable.DeleteEntity(ctx, ownerID, taskID, nil)
	return translate(err)
}

// GetUser retrieves an account by email.
func (s *Storage) GetUser(ctx context.Context, email string) (domain.User, error) {
	key := userKey(email)
	resp, err := s.userTable.GetEntity(ctx, key, key, nil)
	if err != nil {
		return domain.User{}, translate(err)
	}
	var ent userEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.User{}, err
	}
	return ent.toUser(), nil
}

// InsertUser persists a new account. ErrExists is returned when the email
// is already registered.
func (s *Storage) InsertUser(ctx context.Context, user domain.User) error {
	payload, err := json.Marshal(newUserEntity(user))
	if err != nil {
		return err
	}
	_, err = s.userTable.AddEntity(ctx, payload, nil)
	return translate(err)
}

// ConfirmUser marks the account's email as confirmed.
func (s *Storage) ConfirmUser(ctx context.Context, email string) error {
	key := userKey(email)
	confirmed := true
	payload, err := json.Marshal(userUpdateEntity{
		entityKeys: entityKeys{PartitionKey: key, RowKey: key},
		Confirmed:  &confirmed,
	})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.userTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	return translate(err)
}

// EnqueueMail sends the message to the mail queue for downstream delivery.
func (s *Storage) EnqueueMail(ctx context.Context, msg domain.MailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = s.mailQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}
