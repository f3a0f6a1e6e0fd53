package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSyncFull runs a push followed by a pull.
	TaskSyncFull = "sync:full"
	// TaskSyncPull refreshes the local mirrors.
	TaskSyncPull = "sync:pull"
	// TaskSyncPush drains the unsynced queues.
	TaskSyncPush = "sync:push"
)

// NewSyncFullTask constructs the full-sync task.
func NewSyncFullTask() *asynq.Task {
	return asynq.NewTask(TaskSyncFull, nil)
}

// NewSyncPullTask constructs the pull task.
func NewSyncPullTask() *asynq.Task {
	return asynq.NewTask(TaskSyncPull, nil)
}

// NewSyncPushTask constructs the push task.
func NewSyncPushTask() *asynq.Task {
	return asynq.NewTask(TaskSyncPush, nil)
}
