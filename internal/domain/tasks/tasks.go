package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrTaskTitleEmpty        = errors.New("task title is empty")
	ErrTaskRewardNotPositive = errors.New("task reward must be positive")
)

// Task is a completable unit of work with a fixed reward. An account may
// complete a given task at most once; the storage layer enforces that
// with a uniqueness constraint on (account_id, task_id).
type Task struct {
	id           uuid.UUID
	title        string
	rewardAmount decimal.Decimal
	active       bool
	createdAt    time.Time
}

func NewTask(title string, rewardAmount decimal.Decimal) (*Task, error) {
	if title == "" {
		return nil, ErrTaskTitleEmpty
	}

	if !rewardAmount.IsPositive() {
		return nil, ErrTaskRewardNotPositive
	}

	return &Task{
		id:           uuid.New(),
		title:        title,
		rewardAmount: rewardAmount,
		active:       true,
		createdAt:    time.Now(),
	}, nil
}

// RestoreTask rebuilds a task from stored state.
func RestoreTask(id uuid.UUID, title string, rewardAmount decimal.Decimal, active bool, createdAt time.Time) (*Task, error) {
	if title == "" {
		return nil, ErrTaskTitleEmpty
	}

	return &Task{
		id:           id,
		title:        title,
		rewardAmount: rewardAmount,
		active:       active,
		createdAt:    createdAt,
	}, nil
}

func (t *Task) ID() uuid.UUID {
	return t.id
}

func (t *Task) Title() string {
	return t.title
}

func (t *Task) RewardAmount() decimal.Decimal {
	return t.rewardAmount
}

func (t *Task) Active() bool {
	return t.active
}

func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Task) Deactivate() {
	t.active = false
}
