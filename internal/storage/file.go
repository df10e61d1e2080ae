package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

const (
	dosesFile    = "doses.json"
	checkInsFile = "check_ins.json"
	batchesFile  = "batches.json"
	usersFile    = "users.json"
)

// saveWorker debounces writes of one collection to one file.
type saveWorker struct {
	name     string
	path     string
	signal   chan struct{}
	delay    time.Duration
	snapshot func() any
}

func (w *saveWorker) notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *saveWorker) save() error {
	return atomicWriteFileJSON(w.path, w.snapshot())
}

// FileStorage keeps every collection in memory and persists each one to its own
// JSON file under a data directory.
type FileStorage struct {
	doses        map[string]*internal.DoseLog   // id -> dose
	userDoses    map[string][]*internal.DoseLog // userID -> doses, newest first
	checkIns     map[string]*internal.CheckIn
	userCheckIns map[string][]*internal.CheckIn // userID -> check-ins, newest first
	batches      map[string]*internal.Batch
	users        map[string]*internal.User
	tokens       map[string]string // token -> userID
	mu           sync.RWMutex

	doseSaver    *saveWorker
	checkInSaver *saveWorker
	batchSaver   *saveWorker
	userSaver    *saveWorker
	shutdownChan chan struct{}
	workers      sync.WaitGroup
	closeOnce    sync.Once
	logger       internal.Logger
}

func NewFileStorage(dataDir string, logger internal.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	s := &FileStorage{
		doses:        make(map[string]*internal.DoseLog),
		userDoses:    make(map[string][]*internal.DoseLog),
		checkIns:     make(map[string]*internal.CheckIn),
		userCheckIns: make(map[string][]*internal.CheckIn),
		batches:      make(map[string]*internal.Batch),
		users:        make(map[string]*internal.User),
		tokens:       make(map[string]string),
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}
	s.doseSaver = s.newSaver("doses", filepath.Join(dataDir, dosesFile), s.doseSnapshot)
	s.checkInSaver = s.newSaver("check-ins", filepath.Join(dataDir, checkInsFile), s.checkInSnapshot)
	s.batchSaver = s.newSaver("batches", filepath.Join(dataDir, batchesFile), s.batchSnapshot)
	s.userSaver = s.newSaver("users", filepath.Join(dataDir, usersFile), s.userSnapshot)

	if err := s.load(); err != nil {
		logger.Errorf("storage: failed to load %s: %v", dataDir, err)
		return nil, err
	}

	for _, w := range s.savers() {
		s.workers.Add(1)
		go s.runSaver(w)
	}
	return s, nil
}

func (s *FileStorage) newSaver(name, path string, snapshot func() any) *saveWorker {
	return &saveWorker{
		name:     name,
		path:     path,
		signal:   make(chan struct{}, 1),
		delay:    500 * time.Millisecond,
		snapshot: snapshot,
	}
}

func (s *FileStorage) savers() []*saveWorker {
	return []*saveWorker{s.doseSaver, s.checkInSaver, s.batchSaver, s.userSaver}
}

func (s *FileStorage) load() error {
	doses, err := loadJSON[internal.DoseLog](s.doseSaver.path)
	if err != nil {
		return fmt.Errorf("doses: %w", err)
	}
	checkIns, err := loadJSON[internal.CheckIn](s.checkInSaver.path)
	if err != nil {
		return fmt.Errorf("check-ins: %w", err)
	}
	batches, err := loadJSON[internal.Batch](s.batchSaver.path)
	if err != nil {
		return fmt.Errorf("batches: %w", err)
	}
	users, err := loadJSON[internal.User](s.userSaver.path)
	if err != nil {
		return fmt.Errorf("users: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range doses {
		s.putDose(d)
	}
	for _, c := range checkIns {
		s.putCheckIn(c)
	}
	for _, b := range batches {
		s.batches[b.ID] = b
	}
	for _, u := range users {
		s.putUser(u)
	}
	return nil
}

func loadJSON[T any](path string) ([]*T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var items []*T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) runSaver(w *saveWorker) {
	defer s.workers.Done()
	timer := time.NewTimer(w.delay)
	defer timer.Stop()

	for {
		select {
		case <-w.signal:
			timer.Reset(w.delay)
		case <-timer.C:
			if err := w.save(); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", w.name, err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

// Close stops the save workers and flushes every collection synchronously.
func (s *FileStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		s.workers.Wait()
		for _, w := range s.savers() {
			if saveErr := w.save(); saveErr != nil {
				err = errors.Join(err, fmt.Errorf("storage: flush %s: %w", w.name, saveErr))
			}
		}
	})
	return err
}

// Snapshots copy under the read lock and are sorted by id.

func (s *FileStorage) doseSnapshot() any {
	s.mu.RLock()
	out := make([]internal.DoseLog, 0, len(s.doses))
	for _, d := range s.doses {
		out = append(out, *d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FileStorage) checkInSnapshot() any {
	s.mu.RLock()
	out := make([]internal.CheckIn, 0, len(s.checkIns))
	for _, c := range s.checkIns {
		out = append(out, *c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FileStorage) batchSnapshot() any {
	s.mu.RLock()
	out := make([]internal.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *FileStorage) userSnapshot() any {
	s.mu.RLock()
	out := make([]internal.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// insertNewestFirst places item before the first element older than it.
func insertNewestFirst[T any](list []*T, item *T, at func(*T) time.Time) []*T {
	for i, existing := range list {
		if at(existing).Before(at(item)) {
			return append(list[:i], append([]*T{item}, list[i:]...)...)
		}
	}
	return append(list, item)
}

func without[T any](list []*T, match func(*T) bool) []*T {
	out := list[:0]
	for _, item := range list {
		if !match(item) {
			out = append(out, item)
		}
	}
	return out
}

func doseTime(d *internal.DoseLog) time.Time    { return d.Timestamp }
func checkInTime(c *internal.CheckIn) time.Time { return c.Timestamp }

// putDose inserts or replaces a dose. Caller holds mu.
func (s *FileStorage) putDose(d *internal.DoseLog) {
	if old, ok := s.doses[d.ID]; ok {
		s.userDoses[old.UserID] = without(s.userDoses[old.UserID], func(x *internal.DoseLog) bool { return x.ID == d.ID })
	}
	s.doses[d.ID] = d
	s.userDoses[d.UserID] = insertNewestFirst(s.userDoses[d.UserID], d, doseTime)
}

func (s *FileStorage) putCheckIn(c *internal.CheckIn) {
	if old, ok := s.checkIns[c.ID]; ok {
		s.userCheckIns[old.UserID] = without(s.userCheckIns[old.UserID], func(x *internal.CheckIn) bool { return x.ID == c.ID })
	}
	s.checkIns[c.ID] = c
	s.userCheckIns[c.UserID] = insertNewestFirst(s.userCheckIns[c.UserID], c, checkInTime)
}

func (s *FileStorage) putUser(u *internal.User) {
	if old, ok := s.users[u.ID]; ok && old.Token != "" {
		delete(s.tokens, old.Token)
	}
	s.users[u.ID] = u
	if u.Token != "" {
		s.tokens[u.Token] = u.ID
	}
}

// --- DoseRepository ---
func (s *FileStorage) SaveDose(ctx context.Context, dose *internal.DoseLog) error {
	cp := *dose
	s.mu.Lock()
	s.putDose(&cp)
	s.mu.Unlock()
	s.doseSaver.notify()
	return nil
}

func (s *FileStorage) ListDoses(ctx context.Context, userID string) ([]internal.DoseLog, error) {
	return s.ListDosesSince(ctx, userID, time.Time{})
}

func (s *FileStorage) ListDosesSince(ctx context.Context, userID string, since time.Time) ([]internal.DoseLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doses := make([]internal.DoseLog, 0, len(s.userDoses[userID]))
	for _, d := range s.userDoses[userID] {
		if d.Timestamp.Before(since) {
			break
		}
		doses = append(doses, *d)
	}
	return doses, nil
}

// --- CheckInRepository ---
func (s *FileStorage) SaveCheckIn(ctx context.Context, checkIn *internal.CheckIn) error {
	cp := *checkIn
	s.mu.Lock()
	s.putCheckIn(&cp)
	s.mu.Unlock()
	s.checkInSaver.notify()
	return nil
}

func (s *FileStorage) ListCheckIns(ctx context.Context, userID string) ([]internal.CheckIn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checkIns := make([]internal.CheckIn, len(s.userCheckIns[userID]))
	for i, c := range s.userCheckIns[userID] {
		checkIns[i] = *c
	}
	return checkIns, nil
}

// --- BatchRepository ---
func (s *FileStorage) SaveBatch(ctx context.Context, batch *internal.Batch) error {
	cp := *batch
	s.mu.Lock()
	s.batches[cp.ID] = &cp
	s.mu.Unlock()
	s.batchSaver.notify()
	return nil
}

func (s *FileStorage) GetBatch(ctx context.Context, userID, id string) (*internal.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *FileStorage) ListBatches(ctx context.Context, userID string) ([]internal.Batch, error) {
	s.mu.RLock()
	batches := []internal.Batch{}
	for _, b := range s.batches {
		if b.UserID == userID {
			batches = append(batches, *b)
		}
	}
	s.mu.RUnlock()
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.After(batches[j].CreatedAt)
		}
		return batches[i].ID < batches[j].ID
	})
	return batches, nil
}

func (s *FileStorage) IncrementBatchDoses(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	b, ok := s.batches[id]
	if !ok || b.UserID != userID {
		s.mu.Unlock()
		return ErrNotFound
	}
	b.DosesLogged++
	s.mu.Unlock()
	s.batchSaver.notify()
	return nil
}

// --- UserRepository ---
func (s *FileStorage) SaveUser(ctx context.Context, user *internal.User) error {
	cp := *user
	s.mu.Lock()
	s.putUser(&cp)
	s.mu.Unlock()
	s.userSaver.notify()
	return nil
}

func (s *FileStorage) GetUser(ctx context.Context, id string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *FileStorage) GetUserByToken(ctx context.Context, token string) (*internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok || token == "" {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// --- Compile-time assertions ---
var _ DoseRepository = (*FileStorage)(nil)
var _ CheckInRepository = (*FileStorage)(nil)
var _ BatchRepository = (*FileStorage)(nil)
var _ UserRepository = (*FileStorage)(nil)
