package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

const resourceChildren = "children"

// ChildStore holds the parent's child profiles and the active child, whose
// language drives every user-facing string
type ChildStore struct {
	backend interfaces.StoryBackend
	tracker Tracker
	group   singleflight.Group
	logger  *logging.Logger

	mu       sync.RWMutex
	children []interfaces.Child
	activeID interfaces.ID
	fallback i18n.Language
}

// NewChildStore creates a child store. fallback is the language used while
// no child is selected.
func NewChildStore(backend interfaces.StoryBackend, fallback i18n.Language) *ChildStore {
	if !fallback.Valid() {
		fallback = i18n.English
	}
	return &ChildStore{
		backend:  backend,
		fallback: fallback,
		logger:   logging.GetStoreLogger().WithField("store", "children"),
	}
}

// Load fetches the child list. Concurrent loads share one request.
func (s *ChildStore) Load(ctx context.Context) ([]interfaces.Child, error) {
	ticket := s.tracker.Begin(resourceChildren)
	v, err, _ := s.group.Do(resourceChildren, func() (interface{}, error) {
		return s.backend.ListChildren(ctx)
	})
	if err != nil {
		return nil, err
	}
	children := v.([]interfaces.Child)

	if !s.tracker.Commit(ticket, func() { s.setChildren(children) }) {
		s.logger.Debug("Discarding superseded child list")
	}
	return s.Children(), nil
}

func (s *ChildStore) setChildren(children []interfaces.Child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append([]interfaces.Child(nil), children...)
	if s.indexOf(s.activeID) < 0 {
		s.activeID = ""
	}
}

// indexOf returns the position of id; callers hold s.mu
func (s *ChildStore) indexOf(id interfaces.ID) int {
	for i, c := range s.children {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Children returns a copy of the child list
func (s *ChildStore) Children() []interfaces.Child {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.Child(nil), s.children...)
}

// Select makes the child with id active
func (s *ChildStore) Select(id interfaces.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return fmt.Errorf("child %s is not loaded", id)
	}
	s.activeID = id
	s.logger.Info("Child selected", "child_id", id.String())
	return nil
}

// Active returns the active child, or nil
func (s *ChildStore) Active() *interfaces.Child {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.activeID); i >= 0 && s.activeID != "" {
		c := s.children[i]
		return &c
	}
	return nil
}

// Language is the active child's language, or the fallback
func (s *ChildStore) Language() i18n.Language {
	if c := s.Active(); c != nil && c.LanguagePreference != "" {
		return i18n.Parse(c.LanguagePreference)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// SetFallbackLanguage changes the language used with no active child
func (s *ChildStore) SetFallbackLanguage(lang i18n.Language) {
	if !lang.Valid() {
		return
	}
	s.mu.Lock()
	s.fallback = lang
	s.mu.Unlock()
}

// Create adds a child profile
func (s *ChildStore) Create(ctx context.Context, input interfaces.ChildInput) (*interfaces.Child, error) {
	child, err := s.backend.CreateChild(ctx, input)
	if err != nil {
		return nil, err
	}
	s.tracker.Invalidate(resourceChildren)
	s.mu.Lock()
	s.children = append(s.children, *child)
	s.mu.Unlock()
	return child, nil
}

// Update changes a child profile
func (s *ChildStore) Update(ctx context.Context, id interfaces.ID, input interfaces.ChildInput) (*interfaces.Child, error) {
	child, err := s.backend.UpdateChild(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.tracker.Invalidate(resourceChildren)
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.children[i] = *child
	}
	s.mu.Unlock()
	return child, nil
}

// Delete removes a child profile, clearing the selection if it was active
func (s *ChildStore) Delete(ctx context.Context, id interfaces.ID) error {
	if err := s.backend.DeleteChild(ctx, id); err != nil {
		return err
	}
	s.tracker.Invalidate(resourceChildren)
	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.children = append(s.children[:i], s.children[i+1:]...)
	}
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()
	return nil
}

// Dashboard fetches reading statistics for a child
func (s *ChildStore) Dashboard(ctx context.Context, id interfaces.ID) (*interfaces.ChildDashboard, error) {
	v, err, _ := s.group.Do("dashboard:"+id.String(), func() (interface{}, error) {
		return s.backend.ChildDashboard(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*interfaces.ChildDashboard), nil
}

// FamilyDashboard fetches the parent's summary across every child
func (s *ChildStore) FamilyDashboard(ctx context.Context) (*interfaces.ParentDashboard, error) {
	v, err, _ := s.group.Do("dashboard:family", func() (interface{}, error) {
		return s.backend.ParentDashboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*interfaces.ParentDashboard), nil
}

// Progress fetches a child's reading progress report for period
func (s *ChildStore) Progress(ctx context.Context, id interfaces.ID, period string) (*interfaces.ProgressReport, error) {
	v, err, _ := s.group.Do("progress:"+id.String()+":"+period, func() (interface{}, error) {
		return s.backend.ProgressReport(ctx, id, period)
	})
	if err != nil {
		return nil, err
	}
	return v.(*interfaces.ProgressReport), nil
}

// Clear forgets every child and the selection
func (s *ChildStore) Clear() {
	s.tracker.Invalidate(resourceChildren)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = nil
	s.activeID = ""
}
