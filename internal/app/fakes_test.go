package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Nevojt/project-chat-sub000/internal/app"
	"github.com/Nevojt/project-chat-sub000/internal/core"
	"github.com/Nevojt/project-chat-sub000/internal/domain"
)

const (
	codeNone     = 0
	codeNormal   = 1000
	codePolicy   = 1008
	codeInternal = 1011
)

// fakeTransport is an in-memory app.Transport.
type fakeTransport struct {
	in   chan []byte
	done chan struct{}

	mu     sync.Mutex
	out    [][]byte
	closed bool
	code   int
	full   bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadFrame() ([]byte, error) {
	select {
	case b, ok := <-f.in:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	case <-f.done:
		return nil, core.ErrConnClosed
	}
}

func (f *fakeTransport) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnClosed
	}
	if f.full {
		return core.ErrBackpressure
	}
	f.out = append(f.out, append([]byte(nil), fr...))
	return nil
}

func (f *fakeTransport) closeWith(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.code = code
	close(f.done)
}

func (f *fakeTransport) Close()             { f.closeWith(codeNormal) }
func (f *fakeTransport) ClosePolicy(string) { f.closeWith(codePolicy) }
func (f *fakeTransport) CloseInternal()     { f.closeWith(codeInternal) }

func (f *fakeTransport) send(t *testing.T, s string) {
	t.Helper()
	select {
	case f.in <- []byte(s):
	case <-time.After(time.Second):
		t.Fatal("inbound queue full")
	}
}

func (f *fakeTransport) setFull(full bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full = full
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) closeCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.out...)
}

// framesOfType returns decoded object frames carrying the given "type".
// An empty typ selects message events, which have no type field.
func (f *fakeTransport) framesOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, b := range f.frames() {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		got, _ := m["type"].(string)
		if got == typ {
			out = append(out, m)
		}
	}
	return out
}

// memStore is an in-memory core.MessageStore.
type memStore struct {
	mu     sync.Mutex
	recs   []domain.MessageRecord
	fail   error
	nextID int64
}

func (s *memStore) Append(_ context.Context, msg domain.Message) (domain.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.MessageRecord{}, s.fail
	}
	s.nextID++
	rec := domain.MessageRecord{
		ID:        s.nextID,
		CreatedAt: time.Now().UTC(),
		Message:   msg,
	}
	s.recs = append(s.recs, rec)
	return rec, nil
}

func (s *memStore) RecentMessages(_ context.Context, room domain.RoomID, limit, offset int) ([]domain.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MessageRecord
	for i := len(s.recs) - 1; i >= 0; i-- {
		if s.recs[i].RoomID != room {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		out = append(out, s.recs[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) records() []domain.MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MessageRecord(nil), s.recs...)
}

// tokenIdentity maps tokens to users.
type tokenIdentity map[string]*domain.User

func (m tokenIdentity) Verify(_ context.Context, token string) (*domain.User, error) {
	if u, ok := m[token]; ok {
		return u, nil
	}
	return nil, core.ErrInvalidCredential
}

// mapGuard resolves rooms by name or id and applies block/ban rules.
type mapGuard struct {
	rooms  []*domain.Room
	banned map[domain.UserID]bool
}

func (g *mapGuard) ResolveRoom(_ context.Context, ref string) (*domain.Room, error) {
	id, idErr := strconv.ParseInt(ref, 10, 64)
	for _, r := range g.rooms {
		if r.Name == ref || (idErr == nil && r.ID == domain.RoomID(id)) {
			return r, nil
		}
	}
	return nil, core.ErrRoomNotFound
}

func (g *mapGuard) CheckJoin(_ context.Context, room *domain.Room, user *domain.User) error {
	switch {
	case room.Block:
		return core.ErrRoomBlocked
	case user.Blocked:
		return core.ErrUserBlocked
	case g.banned[user.ID]:
		return core.ErrUserBanned
	}
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(domain.UserID) bool { return false }

var (
	alice = &domain.User{ID: 1, Name: "alice", Avatar: "a.png", Verified: true}
	bob   = &domain.User{ID: 2, Name: "bob", Avatar: "b.png"}
	carol = &domain.User{ID: 3, Name: "carol", Blocked: true}
)

type fixture struct {
	orch  *app.Orchestrator
	store *memStore
	guard *mapGuard
}

func newFixture() *fixture {
	store := &memStore{}
	guard := &mapGuard{
		rooms: []*domain.Room{
			{ID: 1, Name: "general"},
			{ID: 2, Name: "closed", Block: true},
		},
		banned: map[domain.UserID]bool{},
	}
	identity := tokenIdentity{"tok-alice": alice, "tok-bob": bob, "tok-carol": carol}
	return &fixture{
		orch:  app.NewOrchestrator(store, identity, guard, app.SimplePolicy{}),
		store: store,
		guard: guard,
	}
}

type running struct {
	sess *app.Session
	t    *fakeTransport
	done chan error
}

// start runs a session in the background.
func (fx *fixture) start(ctx context.Context, room, token string) *running {
	t := newFakeTransport()
	r := &running{sess: fx.orch.NewSession(t), t: t, done: make(chan error, 1)}
	go func() { r.done <- r.sess.Run(ctx, room, token) }()
	return r
}

// join starts a session and waits until it is registered.
func (fx *fixture) join(t *testing.T, ctx context.Context, room, token string) *running {
	t.Helper()
	r := fx.start(ctx, room, token)
	waitFor(t, "session joined", func() bool { return r.sess.State() == app.StateJoined })
	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errStoreDown = errors.New("store down")
