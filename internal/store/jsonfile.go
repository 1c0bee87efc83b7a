package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"integen/api/internal/models"
)

// document is the whole persisted state, kept in memory and flushed
// wholesale after each mutation. Shape matches the historical db.json
// layout so existing files load unchanged.
type document struct {
	Users    []models.User          `json:"users"`
	Payments []models.PaymentRecord `json:"payments"`
	Messages []models.MessageRecord `json:"messages"`
	Events   []eventEntry           `json:"events"`
	Settings models.Settings        `json:"settings"`
}

type eventEntry struct {
	ID          string    `json:"id"`
	ProcessedAt time.Time `json:"processedAt"`
}

func defaultDocument() document {
	return document{
		Users:    []models.User{},
		Payments: []models.PaymentRecord{},
		Messages: []models.MessageRecord{},
		Events:   []eventEntry{},
		Settings: models.Settings{"language": "en"},
	}
}

// FileStore is the single-document JSON backend. One mutex serializes
// every access, so concurrent handlers can never interleave a
// load-then-write.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu  chan struct{} // capacity 1, held across read-modify-write
	doc document
}

var _ Store = (*FileStore)(nil)

// OpenFile loads (or creates) the document at path. A file that cannot
// be parsed is replaced with the default document; that is deliberate
// data loss at startup, logged loudly, instead of a crash loop.
func OpenFile(path string, log zerolog.Logger) (*FileStore, error) {
	s := &FileStore{
		path: path,
		log:  log,
		mu:   make(chan struct{}, 1),
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.doc = defaultDocument()
		if err := s.flush(); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	default:
		if uerr := json.Unmarshal(raw, &s.doc); uerr != nil {
			log.Error().Err(uerr).Str("path", path).
				Msg("store file corrupted, resetting to default state (data lost)")
			s.doc = defaultDocument()
			if err := s.flush(); err != nil {
				return nil, fmt.Errorf("reset store: %w", err)
			}
		}
		s.fillDefaults()
	}

	return s, nil
}

func (s *FileStore) fillDefaults() {
	if s.doc.Users == nil {
		s.doc.Users = []models.User{}
	}
	if s.doc.Payments == nil {
		s.doc.Payments = []models.PaymentRecord{}
	}
	if s.doc.Messages == nil {
		s.doc.Messages = []models.MessageRecord{}
	}
	if s.doc.Events == nil {
		s.doc.Events = []eventEntry{}
	}
	if s.doc.Settings == nil {
		s.doc.Settings = models.Settings{"language": "en"}
	}
}

// lock acquires the store mutex or gives up when ctx is done, so a
// stuck disk cannot wedge every request forever.
func (s *FileStore) lock(ctx context.Context) error {
	select {
	case s.mu <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *FileStore) unlock() {
	<-s.mu
}

// flush writes the document through a temp file and rename so readers
// never observe a partially written store. Caller must hold the lock.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), fmt.Sprintf(".%s.tmp", filepath.Base(s.path)))
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func (s *FileStore) CreateUser(ctx context.Context, user models.User) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	for _, u := range s.doc.Users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	prev := s.doc.Users
	s.doc.Users = append(s.doc.Users, user)
	if err := s.flush(); err != nil {
		s.doc.Users = prev
		return err
	}
	return nil
}

func (s *FileStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	if err := s.lock(ctx); err != nil {
		return models.User{}, err
	}
	defer s.unlock()

	for _, u := range s.doc.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s *FileStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	if err := s.lock(ctx); err != nil {
		return models.User{}, err
	}
	defer s.unlock()

	for _, u := range s.doc.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s *FileStore) UpdateUserPlan(ctx context.Context, id string, plan models.Plan) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	for i := range s.doc.Users {
		if s.doc.Users[i].ID == id {
			prev := s.doc.Users[i].Plan
			s.doc.Users[i].Plan = plan
			if err := s.flush(); err != nil {
				s.doc.Users[i].Plan = prev
				return err
			}
			return nil
		}
	}
	return ErrUserNotFound
}

func (s *FileStore) AppendPayment(ctx context.Context, payment models.PaymentRecord) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	prev := s.doc.Payments
	s.doc.Payments = append(s.doc.Payments, payment)
	if err := s.flush(); err != nil {
		s.doc.Payments = prev
		return err
	}
	return nil
}

func (s *FileStore) ListPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := make([]models.PaymentRecord, len(s.doc.Payments))
	copy(out, s.doc.Payments)
	return out, nil
}

func (s *FileStore) AppendMessage(ctx context.Context, message models.MessageRecord) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	prev := s.doc.Messages
	s.doc.Messages = append(s.doc.Messages, message)
	if err := s.flush(); err != nil {
		s.doc.Messages = prev
		return err
	}
	return nil
}

func (s *FileStore) ListMessages(ctx context.Context) ([]models.MessageRecord, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := make([]models.MessageRecord, len(s.doc.Messages))
	copy(out, s.doc.Messages)
	return out, nil
}

func (s *FileStore) GetSettings(ctx context.Context) (models.Settings, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := make(models.Settings, len(s.doc.Settings))
	for k, v := range s.doc.Settings {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) PutSettings(ctx context.Context, values models.Settings) (models.Settings, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	// Merge into a staged copy so a failed flush leaves the live
	// settings untouched.
	merged := make(models.Settings, len(s.doc.Settings)+len(values))
	for k, v := range s.doc.Settings {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	prev := s.doc.Settings
	s.doc.Settings = merged
	if err := s.flush(); err != nil {
		s.doc.Settings = prev
		return nil, err
	}

	out := make(models.Settings, len(merged))
	for k, v := range merged {
		out[k] = v
	}
	return out, nil
}

func (s *FileStore) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.unlock()

	for _, e := range s.doc.Events {
		if e.ID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	if err := s.lock(ctx); err != nil {
		return false, err
	}
	defer s.unlock()

	for _, e := range s.doc.Events {
		if e.ID == eventID {
			return false, nil
		}
	}
	prev := s.doc.Events
	s.doc.Events = append(s.doc.Events, eventEntry{ID: eventID, ProcessedAt: time.Now().UTC()})
	if err := s.flush(); err != nil {
		s.doc.Events = prev
		return false, err
	}
	return true, nil
}

func (s *FileStore) PruneEvents(ctx context.Context, before time.Time) (int, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.unlock()

	kept := make([]eventEntry, 0, len(s.doc.Events))
	pruned := 0
	for _, e := range s.doc.Events {
		if e.ProcessedAt.Before(before) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	if pruned == 0 {
		return 0, nil
	}

	prev := s.doc.Events
	s.doc.Events = kept
	if err := s.flush(); err != nil {
		s.doc.Events = prev
		return 0, err
	}
	return pruned, nil
}

func (s *FileStore) Close() error {
	return nil
}
