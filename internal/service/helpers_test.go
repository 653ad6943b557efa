package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/team-presence/internal/database"
	"github.com/iliyamo/team-presence/internal/model"
	"github.com/iliyamo/team-presence/internal/queue"
	"github.com/iliyamo/team-presence/internal/repository"
)

// recordingNotifier keeps every published event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.ChangeEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev queue.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) snapshot() []queue.ChangeEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.ChangeEvent(nil), n.events...)
}

// env is a fully wired service stack over a temporary SQLite file.
type env struct {
	users    *repository.UserRepo
	ledger   *Ledger
	machine  *Machine
	presence *Presence
	notifier *recordingNotifier
	clock    Clock
}

// tuesday is 2025-06-10 10:00 UTC.
var tuesday = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "presence.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repository.NewUserRepo(db)
	checkins := repository.NewCheckinRepo(db)
	notifier := &recordingNotifier{}
	clock := FixedClock(now)
	policy := NewPolicy(DefaultElevatedGroups...)
	ledger := NewLedger(repository.NewLocationRepo(db), users, notifier)
	return &env{
		users:    users,
		ledger:   ledger,
		machine:  NewMachine(checkins, policy, notifier, clock),
		presence: NewPresence(ledger, checkins, policy, clock),
		notifier: notifier,
		clock:    clock,
	}
}

// addUser registers a user and returns its actor.
func (e *env) addUser(t *testing.T, name string, role model.Role, group model.ResourceGroup) Actor {
	t.Helper()
	id, err := e.users.Create(context.Background(), repository.NewUser{
		Email:         name + "@example.com",
		Password:      "password123",
		FullName:      name,
		Role:          role,
		ResourceGroup: group,
	}, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return Actor{ID: id, Role: role, Group: group}
}

func (e *env) employee(t *testing.T, name string) Actor {
	return e.addUser(t, name, model.RoleEmployee, model.GroupTeam)
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := Code(err); got != code {
		t.Fatalf("code = %q, want %q (err: %v)", got, code, err)
	}
}

func ptr(s string) *string { return &s }
