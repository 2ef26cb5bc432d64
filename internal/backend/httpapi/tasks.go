package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskgate/internal/service"
)

// taskClient implements service.TaskService with an authorizing transport.
type taskClient struct {
	c *Client
}

// apiTime accepts RFC 3339 as well as the zone-less timestamps the API
// emits for UTC values.
type apiTime time.Time

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = apiTime{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = apiTime(parsed)
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			*t = apiTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", raw)
}

type taskJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	UserID      int64   `json:"user_id"`
	CreatedAt   apiTime `json:"created_at"`
	UpdatedAt   apiTime `json:"updated_at"`
}

func (j taskJSON) task() service.Task {
	t := service.Task{
		ID:        j.ID,
		Title:     j.Title,
		Completed: j.Completed,
		UserID:    j.UserID,
		CreatedAt: time.Time(j.CreatedAt),
		UpdatedAt: time.Time(j.UpdatedAt),
	}
	if j.Description != nil {
		t.Description = *j.Description
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

func tasksPath(userID int64) string {
	return fmt.Sprintf("/api/%d/tasks", userID)
}

func taskPath(userID, id int64) string {
	return fmt.Sprintf("/api/%d/tasks/%d", userID, id)
}

func (t *taskClient) one(ctx context.Context, method, path string, in any) (service.Task, error) {
	var out taskJSON
	if err := t.c.do(ctx, method, path, in, &out); err != nil {
		return service.Task{}, err
	}
	if out.ID <= 0 {
		return service.Task{}, fmt.Errorf("invalid response from %s %s: missing task id", method, path)
	}
	return out.task(), nil
}

func (t *taskClient) List(ctx context.Context, userID int64) ([]service.Task, error) {
	var out []taskJSON
	if err := t.c.do(ctx, http.MethodGet, tasksPath(userID), nil, &out); err != nil {
		return nil, err
	}
	result := make([]service.Task, 0, len(out))
	for _, j := range out {
		result = append(result, j.task())
	}
	return result, nil
}

func (t *taskClient) Create(ctx context.Context, userID int64, data service.CreateTaskData) (service.Task, error) {
	return t.one(ctx, http.MethodPost, tasksPath(userID), data)
}

func (t *taskClient) Update(ctx context.Context, userID, id int64, data service.UpdateTaskData) (service.Task, error) {
	return t.one(ctx, http.MethodPut, taskPath(userID, id), data)
}

func (t *taskClient) Remove(ctx context.Context, userID, id int64) error {
	return t.c.do(ctx, http.MethodDelete, taskPath(userID, id), nil, nil)
}

func (t *taskClient) Toggle(ctx context.Context, userID, id int64) (service.Task, error) {
	return t.one(ctx, http.MethodPatch, taskPath(userID, id)+"/complete", nil)
}
