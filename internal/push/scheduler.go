package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/chorewheel/internal/model"
	"github.com/dukerupert/chorewheel/internal/store"
)

const sentRetention = 7 * 24 * time.Hour

// Scheduler periodically sends each member a reminder of the chores due today.
// Each household is reminded at most once per calendar day.
type Scheduler struct {
	mu         sync.RWMutex
	sender     Sender
	push       *store.PushStore
	households *store.HouseholdStore
	chores     *store.ChoreStore
	logger     *slog.Logger
	interval   time.Duration
	now        func() time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewScheduler creates a reminder scheduler that checks every interval.
func NewScheduler(sender Sender, pushStore *store.PushStore, householdStore *store.HouseholdStore, choreStore *store.ChoreStore, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		sender:     sender,
		push:       pushStore,
		households: householdStore,
		chores:     choreStore,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
	}
}

// Start begins the scheduler loop. It runs one check immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	now := s.now().UTC()
	householdIDs, err := s.households.ListHouseholdIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	for _, hid := range householdIDs {
		s.remindDueToday(hid, now)
	}

	if err := s.push.CleanupSent(now.Add(-sentRetention)); err != nil {
		s.logger.Error("cleanup sent notifications", "error", err)
	}
}

func (s *Scheduler) remindDueToday(householdID int64, now time.Time) {
	today := now.Format(model.DateLayout)
	refID := "due-" + today

	sent, err := s.push.WasSent(householdID, model.NotifTypeChoreDue, refID)
	if err != nil {
		s.logger.Error("check sent", "household_id", householdID, "error", err)
		return
	}
	if sent {
		return
	}

	due, err := s.chores.ListAssignments(store.AssignmentFilter{HouseholdID: householdID, DueDate: today})
	if err != nil {
		s.logger.Error("list due assignments", "household_id", householdID, "error", err)
		return
	}

	open := make(map[int64]int)
	for _, a := range due {
		if !a.Completed() {
			open[a.AssignedTo]++
		}
	}

	for userID, n := range open {
		subs, err := s.push.ListByUser(userID, householdID)
		if err != nil {
			s.logger.Error("list subscriptions", "user_id", userID, "error", err)
			continue
		}
		if len(subs) == 0 {
			continue
		}

		body := fmt.Sprintf("You have %d chores due today", n)
		if n == 1 {
			body = "You have 1 chore due today"
		}
		deliver(s.sender, s.push, s.logger, subs, model.NotifTypeChoreDue, Payload{
			Title: "Chores due today",
			Body:  body,
			URL:   "/chores",
			Tag:   "chore-daily",
		})
	}

	if err := s.push.RecordSent(householdID, model.NotifTypeChoreDue, refID); err != nil {
		s.logger.Error("record sent", "household_id", householdID, "error", err)
	}
}
