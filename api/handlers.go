package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, sessions Sessions, cfg Config, logger *log.Logger) {
	e.GET("/healthz", healthz())

	e.GET("/api/tasks", getTasks(store, auth, logger))
	e.POST("/api/tasks", createTask(store, auth, logger))
	e.PATCH("/api/tasks/reorder", reorderTasks(store, auth, logger))
	e.GET("/api/tasks/stream", streamTasks(store, auth))
	e.PATCH("/api/tasks/:id", updateTask(store, auth, logger))
	e.PATCH("/api/tasks/:id/toggle", toggleTask(store, auth, logger))
	e.PATCH("/api/tasks/:id/move", moveTask(store, auth, logger))
	e.DELETE("/api/tasks/:id", deleteTask(store, auth, logger))

	e.POST("/api/auth/register", postRegister(store, sessions, cfg, logger))
	e.POST("/api/auth/login", postLogin(store, sessions, cfg, logger))
	e.POST("/api/auth/logout", postLogout())
	e.GET("/api/auth/me", getMe(auth))
	e.GET("/api/auth/confirm", getConfirm(store, sessions, logger))

	initMailSender(store, logger)
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// internalError hides backend details behind a generic 500; the cause goes
// to the log only.
func internalError(c echo.Context, logger *log.Logger, op string, err error) error {
	logger.WithFields(log.Fields{"op": op, "error": err.Error()}).Error("request failed")
	return jsonError(c, http.StatusInternalServerError, "internal server error")
}

func getTasks(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		identity, authErr := auth.IdentityFromRequest(c.Request())
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = jsonError(c, http.StatusUnauthorized, "not authenticated")
			return err
		}

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx, identity.UserID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = internalError(c, logger, "list tasks", fetchErr)
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type createTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

func createTask(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}

		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}

		title := domain.NormalizeText(req.Title)
		if title == "" {
			return jsonError(c, http.StatusBadRequest, "task title is required")
		}

		existing, err := store.ListTasks(ctx, identity.UserID)
		if err != nil {
			return internalError(c, logger, "compute next order", err)
		}

		task := domain.Task{
			ID:           uuid.NewString(),
			Title:        title,
			Description:  domain.NormalizeText(req.Description),
			Completed:    false,
			Order:        domain.NextOrder(existing),
			ScheduledFor: req.ScheduledFor,
			CreatedAt:    time.Now().UTC(),
		}

		if err := store.InsertTask(ctx, identity.UserID, task); err != nil {
			return internalError(c, logger, "create task", err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

type updateTaskRequest struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Category     *string         `json:"category"`
	Completed    *bool           `json:"completed"`
	ScheduledFor json.RawMessage `json:"scheduledFor"`
}

func updateTask(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}
		taskID := c.Param("id")

		var req updateTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}

		upd := domain.TaskUpdate{
			Category:  req.Category,
			Completed: req.Completed,
		}
		if req.Title != nil {
			title := domain.NormalizeText(*req.Title)
			if title == "" {
				return jsonError(c, http.StatusBadRequest, "task title is required")
			}
			upd.Title = &title
		}
		if req.Description != nil {
			desc := domain.NormalizeText(*req.Description)
			upd.Description = &desc
		}
		if len(req.ScheduledFor) > 0 {
			if string(req.ScheduledFor) == "null" {
				upd.ClearScheduledFor = true
			} else {
				var when time.Time
				if err := json.Unmarshal(req.ScheduledFor, &when); err != nil {
					return jsonError(c, http.StatusBadRequest, "invalid scheduledFor")
				}
				upd.ScheduledFor = &when
			}
		}

		task, err := store.GetTask(ctx, identity.UserID, taskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "task not found")
			}
			return internalError(c, logger, "load task", err)
		}

		if !upd.Empty() {
			if err := store.UpdateTask(ctx, identity.UserID, taskID, upd); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return jsonError(c, http.StatusNotFound, "task not found")
				}
				return internalError(c, logger, "update task", err)
			}
		}

		return c.JSON(http.StatusOK, applyUpdate(task, upd))
	}
}

// applyUpdate mirrors the storage-side merge so the response can carry the
// updated task without a second read.
func applyUpdate(task domain.Task, upd domain.TaskUpdate) domain.Task {
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Category != nil {
		task.Category = *upd.Category
	}
	if upd.Completed != nil {
		task.Completed = *upd.Completed
	}
	if upd.Order != nil {
		task.Order = *upd.Order
	}
	if upd.ClearScheduledFor {
		task.ScheduledFor = nil
	} else if upd.ScheduledFor != nil {
		task.ScheduledFor = upd.ScheduledFor
	}
	return task
}

func toggleTask(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}
		taskID := c.Param("id")

		task, err := store.GetTask(ctx, identity.UserID, taskID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "task not found")
			}
			return internalError(c, logger, "load task", err)
		}

		completed := !task.Completed
		upd := domain.TaskUpdate{Completed: &completed}
		if err := store.UpdateTask(ctx, identity.UserID, taskID, upd); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "task not found")
			}
			return internalError(c, logger, "toggle task", err)
		}

		task.Completed = completed
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}

		if err := store.DeleteTask(ctx, identity.UserID, c.Param("id")); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return jsonError(c, http.StatusNotFound, "task not found")
			}
			return internalError(c, logger, "delete task", err)
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "task deleted"})
	}
}

type reorderRequest struct {
	TaskOrders []domain.TaskOrder `json:"taskOrders"`
}

// reorderTasks applies each {id, order} pair independently. A pair that
// fails (including pairs naming another user's task) is logged and skipped;
// the batch is not atomic.
func reorderTasks(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}

		var req reorderRequest
		if err := decodeBody(c, &req); err != nil || req.TaskOrders == nil {
			return jsonError(c, http.StatusBadRequest, "taskOrders must be an array")
		}

		for _, pair := range req.TaskOrders {
			order := pair.Order
			upd := domain.TaskUpdate{Order: &order}
			if err := store.UpdateTask(ctx, identity.UserID, pair.ID, upd); err != nil {
				logger.WithFields(log.Fields{
					"task":  pair.ID,
					"order": pair.Order,
					"error": err.Error(),
				}).Warn("reorder pair failed")
			}
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}

type moveTaskRequest struct {
	TargetID string `json:"targetId"`
}

// moveTask runs the reorder engine server-side: the task is spliced to the
// target's position within its partition (active or completed) and the
// renumbered orders are persisted pair by pair.
func moveTask(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		identity, err := auth.IdentityFromRequest(c.Request())
		if err != nil {
			return jsonError(c, http.StatusUnauthorized, "not authenticated")
		}
		taskID := c.Param("id")

		var req moveTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid body")
		}

		tasks, err := store.ListTasks(ctx, identity.UserID)
		if err != nil {
			return internalError(c, logger, "list tasks", err)
		}

		var dragged *domain.Task
		for i := range tasks {
			if tasks[i].ID == taskID {
				dragged = &tasks[i]
				break
			}
		}
		if dragged == nil {
			return jsonError(c, http.StatusNotFound, "task not found")
		}

		active, completed := domain.Partition(tasks)
		partition := active
		if dragged.Completed {
			partition = completed
		}

		reordered, ok := domain.Reorder(partition, taskID, req.TargetID)
		if !ok {
			return c.JSON(http.StatusOK, successResponse{Success: true})
		}

		for _, t := range reordered {
			order := t.Order
			upd := domain.TaskUpdate{Order: &order}
			if err := store.UpdateTask(ctx, identity.UserID, t.ID, upd); err != nil {
				logger.WithFields(log.Fields{
					"task":  t.ID,
					"order": t.Order,
					"error": err.Error(),
				}).Warn("move pair failed")
			}
		}
		return c.JSON(http.StatusOK, successResponse{Success: true})
	}
}
