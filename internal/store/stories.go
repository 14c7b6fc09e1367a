package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

const (
	resourceStories     = "stories"
	resourceCurrent     = "story"
	resourceRecommended = "recommended"
)

// RecommendationLimit is how many recommended stories are requested
const RecommendationLimit = 5

// StoryState is a snapshot of the story store
type StoryState struct {
	Current     *interfaces.Story        `json:"currentStory"`
	Stories     []interfaces.Story       `json:"stories"`
	Filter      interfaces.StoryFilter   `json:"filter"`
	Recommended []interfaces.Story       `json:"recommended"`
	Session     *interfaces.StorySession `json:"session"`
	Safety      *interfaces.SafetyCheck  `json:"safety,omitempty"`
}

// StoryStore holds the story being read, the story library and the reading
// session
type StoryStore struct {
	backend interfaces.StoryBackend
	tracker Tracker
	group   singleflight.Group
	logger  *logging.Logger

	mu          sync.RWMutex
	current     *interfaces.Story
	stories     []interfaces.Story
	filter      interfaces.StoryFilter
	recommended []interfaces.Story
	session     *interfaces.StorySession
	safety      *interfaces.SafetyCheck
}

// NewStoryStore creates a story store
func NewStoryStore(backend interfaces.StoryBackend) *StoryStore {
	return &StoryStore{
		backend: backend,
		logger:  logging.GetStoreLogger().WithField("store", "stories"),
	}
}

// Begin issues a ticket for resource; see Tracker
func (s *StoryStore) Begin(resource string) Ticket {
	return s.tracker.Begin(resource)
}

// Commit applies a response if its ticket is still current
func (s *StoryStore) Commit(ticket Ticket, apply func()) bool {
	return s.tracker.Commit(ticket, apply)
}

// LoadStories fetches the story library matching filter. Identical
// concurrent loads share one request; a load superseded by a later one is
// not applied.
func (s *StoryStore) LoadStories(ctx context.Context, filter interfaces.StoryFilter) ([]interfaces.Story, error) {
	ticket := s.Begin(resourceStories)
	v, err, _ := s.group.Do(filterKey(filter), func() (interface{}, error) {
		return s.backend.ListStories(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	stories := v.([]interfaces.Story)

	applied := s.Commit(ticket, func() {
		s.mu.Lock()
		s.stories = append([]interfaces.Story(nil), stories...)
		s.filter = filter
		s.mu.Unlock()
	})
	if !applied {
		s.logger.Debug("Discarding superseded story list", "filter", filterKey(filter))
	}
	return stories, nil
}

// Stories returns the loaded library
func (s *StoryStore) Stories() []interfaces.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.Story(nil), s.stories...)
}

// Filtered narrows the loaded library locally. Empty arguments match
// everything.
func (s *StoryStore) Filtered(theme, language, readingLevel string) []interfaces.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []interfaces.Story
	for _, st := range s.stories {
		if theme != "" && !strings.EqualFold(st.Theme, theme) {
			continue
		}
		if language != "" && !strings.EqualFold(st.Language, language) {
			continue
		}
		if readingLevel != "" && !strings.EqualFold(st.ReadingLevel, readingLevel) {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Current returns the story being read, or nil
func (s *StoryStore) Current() *interfaces.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStory(s.current)
}

// Session returns the active reading session, or nil
func (s *StoryStore) Session() *interfaces.StorySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	sess := *s.session
	return &sess
}

// Generate asks the backend for a new story. The store is left alone: the
// caller makes the story current with SetCurrent once it is shown.
func (s *StoryStore) Generate(ctx context.Context, req interfaces.GenerateStoryRequest) (*interfaces.Story, error) {
	story, err := s.backend.GenerateStory(ctx, req)
	if err != nil {
		return nil, err
	}
	return cloneStory(story), nil
}

// Fetch loads a stored story. Like Generate it leaves the store alone.
func (s *StoryStore) Fetch(ctx context.Context, id interfaces.ID) (*interfaces.Story, error) {
	v, err, _ := s.group.Do("story:"+id.String(), func() (interface{}, error) {
		return s.backend.GetStory(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return cloneStory(v.(*interfaces.Story)), nil
}

// LoadRecommendations fetches the stories picked for a child. A load
// superseded by a later one is not applied.
func (s *StoryStore) LoadRecommendations(ctx context.Context, childID interfaces.ID) ([]interfaces.Story, error) {
	ticket := s.Begin(resourceRecommended)
	v, err, _ := s.group.Do("recommended:"+childID.String(), func() (interface{}, error) {
		return s.backend.Recommendations(ctx, childID, RecommendationLimit)
	})
	if err != nil {
		return nil, err
	}
	stories := append([]interfaces.Story(nil), v.(*interfaces.StoryRecommendation).Stories...)

	s.Commit(ticket, func() {
		s.mu.Lock()
		s.recommended = stories
		s.mu.Unlock()
	})
	return stories, nil
}

// Recommended returns the last loaded recommendations
func (s *StoryStore) Recommended() []interfaces.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]interfaces.Story(nil), s.recommended...)
}

// SetCurrent replaces the current story, superseding in-flight loads
func (s *StoryStore) SetCurrent(story *interfaces.Story) {
	s.commitCurrent(s.Begin(resourceCurrent), cloneStory(story))
}

func (s *StoryStore) commitCurrent(ticket Ticket, story *interfaces.Story) {
	applied := s.Commit(ticket, func() {
		s.mu.Lock()
		s.current = story
		s.safety = nil
		if s.session != nil && story != nil && s.session.StoryID != story.ID {
			s.session = nil
		}
		s.mu.Unlock()
	})
	if !applied && story != nil {
		s.logger.Debug("Discarding superseded story", "story_id", story.ID.String())
	}
}

// StartSession begins or resumes reading the current story for a child
func (s *StoryStore) StartSession(ctx context.Context, childID interfaces.ID) (*interfaces.StorySession, error) {
	story := s.Current()
	if story == nil {
		return nil, fmt.Errorf("no story selected")
	}
	session, err := s.OpenSession(ctx, story.ID, childID)
	if err != nil {
		return nil, err
	}
	s.SetSession(session)
	return session, nil
}

// OpenSession asks the backend for a reading session without recording it
func (s *StoryStore) OpenSession(ctx context.Context, storyID, childID interfaces.ID) (*interfaces.StorySession, error) {
	return s.backend.StartSession(ctx, storyID, childID)
}

// SetSession records session when it belongs to the current story and
// reports whether it did
func (s *StoryStore) SetSession(session *interfaces.StorySession) bool {
	if session == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != session.StoryID {
		s.logger.Debug("Discarding session for another story", "story_id", session.StoryID.String())
		return false
	}
	sess := *session
	s.session = &sess
	return true
}

// SubmitChoice sends a decision for the active session. The chapter it
// leads to is not applied; see ApplyChoice.
func (s *StoryStore) SubmitChoice(ctx context.Context, req interfaces.ChoiceRequest) (*interfaces.ChoiceResult, error) {
	session := s.Session()
	if session == nil {
		return nil, fmt.Errorf("no reading session started")
	}
	result, err := s.backend.SubmitChoice(ctx, session.ID, req)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("choice rejected: %s", result.Error)
	}
	return result, nil
}

// ApplyChoice appends the chapter a choice led to onto the current story
// and advances the session
func (s *StoryStore) ApplyChoice(result *interfaces.ChoiceResult) {
	if result == nil {
		return
	}
	s.tracker.Invalidate(resourceCurrent)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Content = append(s.current.Content, interfaces.SplitParagraphs(result.BranchContent)...)
		s.current.Choices = append([]interfaces.Choice(nil), result.NewChoices...)
		s.current.IsCompleted = result.IsEnding
		if result.NextChapter > 0 {
			s.current.CurrentChapter = result.NextChapter
			s.current.TotalChapters = max(s.current.TotalChapters, result.NextChapter)
		}
	}
	if s.session != nil {
		if result.NextChapter > 0 {
			s.session.CurrentChapter = result.NextChapter
		}
		s.session.CompletionPercentage = result.CompletionPercentage
		s.session.IsCompleted = result.IsEnding
	}
}

// UpdateProgress reports reading progress for the active session
func (s *StoryStore) UpdateProgress(ctx context.Context, progress interfaces.ReadingProgress) error {
	session := s.Session()
	if session == nil {
		return fmt.Errorf("no reading session started")
	}
	if err := s.backend.UpdateProgress(ctx, session.ID, progress); err != nil {
		return err
	}
	s.mu.Lock()
	if s.session != nil && s.session.ID == session.ID {
		s.session.WordsRead += progress.WordsRead
	}
	s.mu.Unlock()
	return nil
}

// CheckSafety runs the content safety check for the current story
func (s *StoryStore) CheckSafety(ctx context.Context, childAge int, language string) (*interfaces.SafetyCheck, error) {
	story := s.Current()
	if story == nil {
		return nil, fmt.Errorf("no story selected")
	}
	check, err := s.backend.CheckSafety(ctx, story.ID, childAge, language)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.current != nil && s.current.ID == story.ID {
		s.safety = check
	}
	s.mu.Unlock()
	return check, nil
}

// ClearCurrent forgets the current story
func (s *StoryStore) ClearCurrent() {
	s.tracker.Invalidate(resourceCurrent)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.safety = nil
}

// ClearAll forgets every story and the library. The reading session is kept.
func (s *StoryStore) ClearAll() {
	s.tracker.Invalidate(resourceCurrent)
	s.tracker.Invalidate(resourceStories)
	s.tracker.Invalidate(resourceRecommended)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.safety = nil
	s.stories = nil
	s.recommended = nil
	s.filter = interfaces.StoryFilter{}
}

// Reset forgets everything including the session, used on logout
func (s *StoryStore) Reset() {
	s.ClearAll()
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the whole store
func (s *StoryStore) Snapshot() StoryState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state := StoryState{
		Current:     cloneStory(s.current),
		Stories:     append([]interfaces.Story(nil), s.stories...),
		Filter:      s.filter,
		Recommended: append([]interfaces.Story(nil), s.recommended...),
		Safety:      s.safety,
	}
	if s.session != nil {
		sess := *s.session
		state.Session = &sess
	}
	return state
}

func cloneStory(story *interfaces.Story) *interfaces.Story {
	if story == nil {
		return nil
	}
	c := *story
	c.Content = append([]string(nil), story.Content...)
	c.Choices = append([]interfaces.Choice(nil), story.Choices...)
	return &c
}

func filterKey(f interfaces.StoryFilter) string {
	return strings.Join([]string{"stories", f.ChildID.String(), f.Theme, f.Difficulty, f.Language, strconv.Itoa(f.Limit)}, "|")
}
