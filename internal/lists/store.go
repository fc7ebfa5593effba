// Package lists stores user-curated attorney lists, one serialized
// collection per user key, and serves the /api/lists routes.
package lists

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"amlaw-directory/internal/logger"
	"amlaw-directory/internal/model"
)

// DefaultKeyPrefix is prepended to the user id to form the storage key.
const DefaultKeyPrefix = "amlaw_lists_"

const guestUser = "guest"

// ErrListNotFound is returned for operations on a list id the user does not have.
var ErrListNotFound = errors.New("list not found")

// EventPublisher receives an event after every persisted mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ListEvent) error
}

// Store implements list operations over a Storage backend. Each operation is
// a read-modify-write of the user's whole collection; concurrent writers to
// the same key race and the last one wins.
type Store struct {
	storage   Storage
	prefix    string
	publisher EventPublisher
	now       func() time.Time
}

// NewStore creates a store. A nil publisher drops events.
func NewStore(storage Storage, prefix string, publisher EventPublisher) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		storage:   storage,
		prefix:    prefix,
		publisher: publisher,
		now:       time.Now,
	}
}

// Key returns the storage key for userID; an empty id maps to the guest scope.
func (s *Store) Key(userID string) string {
	if userID == "" {
		userID = guestUser
	}
	return s.prefix + userID
}

// Lists returns every list of the user. Missing or unreadable data yields an
// empty collection.
func (s *Store) Lists(ctx context.Context, userID string) ([]model.UserList, error) {
	return s.load(ctx, s.Key(userID))
}

// Get returns one list.
func (s *Store) Get(ctx context.Context, userID, listID string) (model.UserList, error) {
	all, err := s.Lists(ctx, userID)
	if err != nil {
		return model.UserList{}, err
	}
	i := indexOf(all, listID)
	if i < 0 {
		return model.UserList{}, ErrListNotFound
	}
	return all[i], nil
}

// Create appends a new empty list. Its id is the current unix time in
// milliseconds, advanced until it is unique within the collection.
func (s *Store) Create(ctx context.Context, userID, name string) (model.UserList, error) {
	key := s.Key(userID)
	all, err := s.load(ctx, key)
	if err != nil {
		return model.UserList{}, err
	}

	ms := s.now().UnixMilli()
	id := strconv.FormatInt(ms, 10)
	for indexOf(all, id) >= 0 {
		ms++
		id = strconv.FormatInt(ms, 10)
	}

	list := model.UserList{ID: id, Name: name, Items: []model.ListItem{}}
	if err := s.save(ctx, key, append(all, list)); err != nil {
		return model.UserList{}, err
	}
	s.emit(ctx, model.ListCreated, key, id, "")
	return list, nil
}

// Rename changes a list's name.
func (s *Store) Rename(ctx context.Context, userID, listID, name string) (model.UserList, error) {
	return s.mutate(ctx, userID, listID, model.ListRenamed, "", func(l *model.UserList) {
		l.Name = name
	})
}

// Delete removes one list; the user's other lists and other users' keys are untouched.
func (s *Store) Delete(ctx context.Context, userID, listID string) error {
	key := s.Key(userID)
	all, err := s.load(ctx, key)
	if err != nil {
		return err
	}
	i := indexOf(all, listID)
	if i < 0 {
		return ErrListNotFound
	}
	if err := s.save(ctx, key, append(all[:i], all[i+1:]...)); err != nil {
		return err
	}
	s.emit(ctx, model.ListDeleted, key, listID, "")
	return nil
}

// AddItem inserts item, replacing in place an entry with the same attorney_id.
func (s *Store) AddItem(ctx context.Context, userID, listID string, item model.ListItem) (model.UserList, error) {
	return s.mutate(ctx, userID, listID, model.ListItemAdded, item.AttorneyID, func(l *model.UserList) {
		for i := range l.Items {
			if l.Items[i].AttorneyID == item.AttorneyID {
				l.Items[i] = item
				return
			}
		}
		l.Items = append(l.Items, item)
	})
}

// RemoveItem drops every entry with attorneyID. Removing an absent attorney is not an error.
func (s *Store) RemoveItem(ctx context.Context, userID, listID, attorneyID string) (model.UserList, error) {
	return s.mutate(ctx, userID, listID, model.ListItemRemoved, attorneyID, func(l *model.UserList) {
		kept := l.Items[:0]
		for _, it := range l.Items {
			if it.AttorneyID != attorneyID {
				kept = append(kept, it)
			}
		}
		l.Items = kept
	})
}

func (s *Store) mutate(ctx context.Context, userID, listID string, evt model.ListEventType, attorneyID string, fn func(*model.UserList)) (model.UserList, error) {
	key := s.Key(userID)
	all, err := s.load(ctx, key)
	if err != nil {
		return model.UserList{}, err
	}
	i := indexOf(all, listID)
	if i < 0 {
		return model.UserList{}, ErrListNotFound
	}
	fn(&all[i])
	if err := s.save(ctx, key, all); err != nil {
		return model.UserList{}, err
	}
	s.emit(ctx, evt, key, listID, attorneyID)
	return all[i], nil
}

func (s *Store) load(ctx context.Context, key string) ([]model.UserList, error) {
	raw, err := s.storage.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return []model.UserList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}

	var all []model.UserList
	if err := json.Unmarshal(raw, &all); err != nil {
		logger.FromContext(ctx).Warn("discarding unreadable list data", zap.String("key", key), zap.Error(err))
		return []model.UserList{}, nil
	}
	if all == nil {
		all = []model.UserList{}
	}
	for i := range all {
		if all[i].Items == nil {
			all[i].Items = []model.ListItem{}
		}
	}
	return all, nil
}

func (s *Store) save(ctx context.Context, key string, all []model.UserList) error {
	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode lists: %w", err)
	}
	if err := s.storage.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save lists: %w", err)
	}
	return nil
}

// emit publishes an event; failures are logged and never fail the mutation.
func (s *Store) emit(ctx context.Context, typ model.ListEventType, key, listID, attorneyID string) {
	if s.publisher == nil {
		return
	}
	event := model.ListEvent{
		Type:       typ,
		UserKey:    key,
		ListID:     listID,
		AttorneyID: attorneyID,
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("failed to publish list event",
			zap.String("type", string(typ)),
			zap.String("list_id", listID),
			zap.Error(err),
		)
	}
}

func indexOf(all []model.UserList, listID string) int {
	for i := range all {
		if all[i].ID == listID {
			return i
		}
	}
	return -1
}
