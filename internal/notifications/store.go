// Package notifications keeps per-user smart notifications in memory and pushes
// changes to connected clients.
package notifications

import (
	"errors"
	"sync"
	"time"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/google/uuid"
)

// DefaultListLimit is used when a list request does not set a limit
const DefaultListLimit = 50

// ErrNotFound is returned when a notification does not exist for the user
var ErrNotFound = errors.New("notification not found")

// ListOptions filters a listing
type ListOptions struct {
	Limit      int
	UnreadOnly bool
}

// ListResult is a page of notifications plus per-user totals
type ListResult struct {
	Notifications []*models.Notification `json:"notifications"`
	TotalCount    int                    `json:"total_count"`
	UnreadCount   int                    `json:"unread_count"`
}

type userNotifications struct {
	mu       sync.Mutex
	items    []*models.Notification
	settings models.NotificationSettings
}

// Store owns every user's notification list. The top-level map is guarded by an
// RWMutex and each user's list by its own mutex, so writes for different users do not contend.
type Store struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*userNotifications
	now   func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users: make(map[uuid.UUID]*userNotifications),
		now:   time.Now,
	}
}

func (s *Store) bucket(userID uuid.UUID, create bool) *userNotifications {
	s.mu.RLock()
	b, ok := s.users[userID]
	s.mu.RUnlock()
	if ok || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.users[userID]; ok {
		return b
	}
	b = &userNotifications{settings: models.DefaultNotificationSettings()}
	s.users[userID] = b
	return b
}

func clone(n *models.Notification) *models.Notification {
	c := *n
	if n.Actions != nil {
		c.Actions = append([]models.NotificationAction(nil), n.Actions...)
	}
	return &c
}

// Add stores a notification, filling in ID, owner, unread state and creation time
func (s *Store) Add(userID uuid.UUID, n *models.Notification) *models.Notification {
	stored := clone(n)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.UserID = userID
	stored.Read = false
	stored.ReadAt = nil
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}

	b := s.bucket(userID, true)
	b.mu.Lock()
	b.items = append(b.items, stored)
	b.mu.Unlock()
	return clone(stored)
}

// List returns notifications newest first
func (s *Store) List(userID uuid.UUID, opts ListOptions) ListResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	res := ListResult{Notifications: make([]*models.Notification, 0)}

	b := s.bucket(userID, false)
	if b == nil {
		return res
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	res.TotalCount = len(b.items)
	for i := len(b.items) - 1; i >= 0; i-- {
		n := b.items[i]
		if !n.Read {
			res.UnreadCount++
		}
		if opts.UnreadOnly && n.Read {
			continue
		}
		if len(res.Notifications) < limit {
			res.Notifications = append(res.Notifications, clone(n))
		}
	}
	return res
}

// Get returns one notification
func (s *Store) Get(userID, id uuid.UUID) (*models.Notification, error) {
	b := s.bucket(userID, false)
	if b == nil {
		return nil, ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range b.items {
		if n.ID == id {
			return clone(n), nil
		}
	}
	return nil, ErrNotFound
}

// MarkRead flips a notification to read. Marking an already read notification
// leaves it unchanged and reports changed=false.
func (s *Store) MarkRead(userID, id uuid.UUID) (n *models.Notification, changed bool, err error) {
	b := s.bucket(userID, false)
	if b == nil {
		return nil, false, ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range b.items {
		if item.ID != id {
			continue
		}
		if !item.Read {
			now := s.now()
			item.Read = true
			item.ReadAt = &now
			changed = true
		}
		return clone(item), changed, nil
	}
	return nil, false, ErrNotFound
}

// MarkAllRead marks every unread notification read and returns how many changed
func (s *Store) MarkAllRead(userID uuid.UUID) int {
	b := s.bucket(userID, false)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := s.now()
	changed := 0
	for _, item := range b.items {
		if !item.Read {
			readAt := now
			item.Read = true
			item.ReadAt = &readAt
			changed++
		}
	}
	return changed
}

// Delete removes a notification
func (s *Store) Delete(userID, id uuid.UUID) error {
	b := s.bucket(userID, false)
	if b == nil {
		return ErrNotFound
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, item := range b.items {
		if item.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Settings returns the user's notification settings, defaults if never set
func (s *Store) Settings(userID uuid.UUID) models.NotificationSettings {
	b := s.bucket(userID, false)
	if b == nil {
		return models.DefaultNotificationSettings()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}

// UpdateSettings replaces the user's notification settings
func (s *Store) UpdateSettings(userID uuid.UUID, settings models.NotificationSettings) models.NotificationSettings {
	b := s.bucket(userID, true)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = settings
	return b.settings
}
