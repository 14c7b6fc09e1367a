package mockapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// progressWindows maps a report period onto the span it covers
var progressWindows = map[string]time.Duration{
	"week":    7 * 24 * time.Hour,
	"month":   30 * 24 * time.Hour,
	"quarter": 90 * 24 * time.Hour,
	"year":    365 * 24 * time.Hour,
}

var validInterests = map[string]bool{
	"animals": true, "adventure": true, "fantasy": true, "science": true,
	"mystery": true, "friendship": true, "family": true, "sports": true,
	"music": true, "art": true, "nature": true,
}

type childInput struct {
	Name               *string  `json:"name"`
	Age                *int     `json:"age"`
	LanguagePreference *string  `json:"language_preference"`
	ReadingLevel       *string  `json:"reading_level"`
	Interests          []string `json:"interests"`
}

func (in childInput) validate(c *gin.Context, create bool) bool {
	if create && (in.Name == nil || strings.TrimSpace(*in.Name) == "") {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "name", "field required"))
		return false
	}
	if create && in.Age == nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "age", "field required"))
		return false
	}
	if in.Age != nil && (*in.Age < 7 || *in.Age > 12) {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "age", "Age must be between 7 and 12"))
		return false
	}
	for _, interest := range in.Interests {
		if !validInterests[interest] {
			c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "interests", "Invalid interest: "+interest))
			return false
		}
	}
	return true
}

func childJSON(ch *child) gin.H {
	return gin.H{
		"id":                       ch.ID,
		"name":                     ch.Name,
		"age":                      ch.Age,
		"language_preference":      ch.LanguagePreference,
		"reading_level":            ch.ReadingLevel,
		"interests":                ch.Interests,
		"total_stories_completed":  ch.StoriesCompleted,
		"total_reading_time":       ch.ReadingTime,
		"current_reading_streak":   0,
		"longest_reading_streak":   0,
		"vocabulary_words_learned": 0,
	}
}

// ownedChild returns the child when it belongs to the current user, writing
// 404 or 403 otherwise; callers hold s.mu
func (s *Server) ownedChild(c *gin.Context, id int) *child {
	ch, ok := s.children[id]
	if !ok || !ch.Active {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Child not found"})
		return nil
	}
	if ch.ParentID != currentUser(c) {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Access denied to this child profile"})
		return nil
	}
	return ch
}

func (s *Server) listChildren(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []gin.H{}
	ids := make([]int, 0, len(s.children))
	for id := range s.children {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		ch := s.children[id]
		if ch.Active && ch.ParentID == currentUser(c) {
			out = append(out, childJSON(ch))
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createChild(c *gin.Context) {
	var in childInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "name", err.Error()))
		return
	}
	if !in.validate(c, true) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &child{
		ID:                 s.allocID(),
		ParentID:           currentUser(c),
		Name:               strings.TrimSpace(*in.Name),
		Age:                *in.Age,
		LanguagePreference: "english",
		ReadingLevel:       "beginner",
		Interests:          in.Interests,
		Active:             true,
	}
	if in.LanguagePreference != nil {
		ch.LanguagePreference = *in.LanguagePreference
	}
	if in.ReadingLevel != nil {
		ch.ReadingLevel = *in.ReadingLevel
	}
	if ch.Interests == nil {
		ch.Interests = []string{}
	}
	s.children[ch.ID] = ch
	c.JSON(http.StatusCreated, childJSON(ch))
}

func (s *Server) getChild(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch := s.ownedChild(c, id); ch != nil {
		c.JSON(http.StatusOK, childJSON(ch))
	}
}

func (s *Server) updateChild(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in childInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "name", err.Error()))
		return
	}
	if !in.validate(c, false) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.ownedChild(c, id)
	if ch == nil {
		return
	}
	if in.Name != nil {
		ch.Name = *in.Name
	}
	if in.Age != nil {
		ch.Age = *in.Age
	}
	if in.LanguagePreference != nil {
		ch.LanguagePreference = *in.LanguagePreference
	}
	if in.ReadingLevel != nil {
		ch.ReadingLevel = *in.ReadingLevel
	}
	if in.Interests != nil {
		ch.Interests = in.Interests
	}
	c.JSON(http.StatusOK, childJSON(ch))
}

func (s *Server) deleteChild(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch := s.ownedChild(c, id); ch != nil {
		ch.Active = false
		c.JSON(http.StatusOK, gin.H{"message": "Child profile deleted successfully"})
	}
}

func (s *Server) childDashboard(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.ownedChild(c, id)
	if ch == nil {
		return
	}

	recent := []gin.H{}
	var current gin.H
	for _, sess := range s.sessions {
		if sess.ChildID != ch.ID {
			continue
		}
		summary := gin.H{
			"session_id":            sess.ID,
			"story_title":           s.stories[sess.StoryID].Title,
			"completion_percentage": sess.Completion,
			"words_read":            sess.WordsRead,
			"choices_made":          sess.Choices,
			"completed":             sess.Completed,
		}
		recent = append(recent, summary)
		if !sess.Completed {
			current = summary
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"child":               childJSON(ch),
		"current_story":       current,
		"recent_achievements": []string{},
		"reading_streak":      0,
		"stories_this_week":   len(recent),
		"reading_time_today":  ch.ReadingTime,
		"recommended_stories": []gin.H{},
	})
}

func (s *Server) parentDashboard(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent := s.users[currentUser(c)]
	summaries := []gin.H{}
	total := 0
	for _, ch := range s.children {
		if !ch.Active || ch.ParentID != parent.ID {
			continue
		}
		total += ch.StoriesCompleted
		summaries = append(summaries, gin.H{
			"child_id":                    ch.ID,
			"name":                        ch.Name,
			"age":                         ch.Age,
			"reading_level":               ch.ReadingLevel,
			"stories_completed_this_week": ch.StoriesCompleted,
			"reading_time_this_week":      ch.ReadingTime,
			"current_streak":              0,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i]["child_id"].(int) < summaries[j]["child_id"].(int)
	})

	c.JSON(http.StatusOK, gin.H{
		"parent_name":               parent.Name,
		"children_summary":          summaries,
		"total_family_reading_time": 0,
		"total_stories_completed":   total,
		"family_reading_streak":     0,
		"recommendations":           []string{"Read together before bedtime"},
		"recent_achievements":       []gin.H{},
	})
}

func (s *Server) progressReport(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "month")
	window, known := progressWindows[period]
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid period. Must be one of: week, month, quarter, year"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.ownedChild(c, id)
	if ch == nil {
		return
	}

	end := time.Now().UTC()
	start := end.Add(-window)
	completed, words := 0, 0
	for _, sess := range s.sessions {
		if sess.ChildID != ch.ID || sess.Started.Before(start) {
			continue
		}
		words += sess.WordsRead
		if sess.Completed {
			completed++
		}
	}

	recommendations := []string{"Keep reading a little every day"}
	if completed == 0 {
		recommendations = []string{"Try a short story together this week"}
	}
	c.JSON(http.StatusOK, gin.H{
		"child_id":                  ch.ID,
		"child_name":                ch.Name,
		"period":                    period,
		"start_date":                start.Format("2006-01-02T15:04:05.999999"),
		"end_date":                  end.Format("2006-01-02T15:04:05.999999"),
		"initial_reading_level":     ch.ReadingLevel,
		"current_reading_level":     ch.ReadingLevel,
		"reading_level_improvement": 0.0,
		"total_reading_time":        ch.ReadingTime / 60,
		"stories_completed":         completed,
		"vocabulary_growth":         words / 10,
		"comprehension_trends":      []gin.H{},
		"reading_speed_trends":      []gin.H{},
		"recommendations":           recommendations,
	})
}
