package firebase

import (
	"context"
	"errors"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"todosync/internal/service"
)

// taskDoc is the Firestore document layout of a task.
type taskDoc struct {
	UserID      string `firestore:"userId"`
	Title       string `firestore:"title"`
	Description string `firestore:"description"`
	Completed   bool   `firestore:"isCompleted"`
	Timestamp   int64  `firestore:"timestamp"`
}

func toDoc(t service.Task) taskDoc {
	return taskDoc{
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Timestamp:   t.Timestamp,
	}
}

func (d taskDoc) task(id string) service.Task {
	return service.Task{
		ID:          id,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Timestamp:   d.Timestamp,
	}
}

// taskService stores tasks under users/{uid}/tasks.
type taskService struct {
	client *firestore.Client
}

func (s *taskService) collection(userID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userID).Collection("tasks")
}

// Watch implements service.TaskService.
func (s *taskService) Watch(ctx context.Context, userID string) (service.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.collection(userID).OrderBy("timestamp", firestore.Desc).Snapshots(ctx)
	return &subscription{it: it, cancel: cancel}, nil
}

// Create implements service.TaskService.
func (s *taskService) Create(ctx context.Context, task service.Task) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	ref, _, err := s.collection(task.UserID).Add(ctx, toDoc(task))
	if err != nil {
		return "", wrapError(err)
	}
	return ref.ID, nil
}

// Merge implements service.TaskService.
func (s *taskService) Merge(ctx context.Context, task service.Task) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	fields := map[string]interface{}{
		"userId":      task.UserID,
		"title":       task.Title,
		"description": task.Description,
		"isCompleted": task.Completed,
		"timestamp":   task.Timestamp,
	}
	_, err := s.collection(task.UserID).Doc(task.ID).Set(ctx, fields, firestore.MergeAll)
	return wrapError(err)
}

// SetCompleted implements service.TaskService.
func (s *taskService) SetCompleted(ctx context.Context, userID, taskID string, completed bool) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := s.collection(userID).Doc(taskID).Update(ctx, []firestore.Update{
		{Path: "isCompleted", Value: completed},
	})
	return wrapError(err)
}

// Delete implements service.TaskService.
func (s *taskService) Delete(ctx context.Context, userID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := s.collection(userID).Doc(taskID).Delete(ctx)
	return wrapError(err)
}

// subscription adapts a Firestore query snapshot iterator.
type subscription struct {
	it     *firestore.QuerySnapshotIterator
	cancel context.CancelFunc
	once   sync.Once
}

// Next implements service.Subscription.
func (s *subscription) Next() ([]service.Task, error) {
	snap, err := s.it.Next()
	if err != nil {
		if isClosed(err) {
			return nil, service.ErrSubscriptionClosed
		}
		return nil, wrapError(err)
	}

	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, wrapError(err)
	}
	return decodeTasks(docs)
}

// Stop implements service.Subscription.
func (s *subscription) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.it.Stop()
	})
}

func decodeTasks(docs []*firestore.DocumentSnapshot) ([]service.Task, error) {
	tasks := make([]service.Task, 0, len(docs))
	for _, doc := range docs {
		var d taskDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, &service.DecodeError{DocID: doc.Ref.ID, Err: err}
		}
		tasks = append(tasks, d.task(doc.Ref.ID))
	}
	return tasks, nil
}

func isClosed(err error) bool {
	return errors.Is(err, iterator.Done) ||
		errors.Is(err, context.Canceled) ||
		status.Code(err) == codes.Canceled
}
