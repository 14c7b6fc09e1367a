package mockapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const totalChapters = 3

var storyOpenings = map[string][]string{
	"english": {
		"Once upon a time, %s found a glowing map tucked inside an old book about %s.",
		"The map showed a winding path through whispering trees and a river that sparkled like stars.",
		"With a deep breath and a brave smile, %s stepped onto the path.",
	},
	"hebrew": {
		"פעם אחת, %s מצא מפה זוהרת בתוך ספר ישן על %s.",
		"המפה הראתה שביל מתפתל בין עצים לוחשים ונהר שנוצץ כמו כוכבים.",
		"עם נשימה עמוקה וחיוך אמיץ, %s צעד אל השביל.",
	},
}

var storyChoices = map[string][]choice{
	"english": {
		{Text: "Follow the sparkling river", Description: "Discover where the water leads"},
		{Text: "Climb the tallest tree", Description: "See the whole forest from above"},
		{Text: "Ask the wise owl for help", Description: "Make a new friend"},
	},
	"hebrew": {
		{Text: "ללכת בעקבות הנהר הנוצץ", Description: "לגלות לאן המים מובילים"},
		{Text: "לטפס על העץ הגבוה ביותר", Description: "לראות את כל היער מלמעלה"},
		{Text: "לבקש עזרה מהינשוף החכם", Description: "להכיר חבר חדש"},
	},
}

func languageOf(lang string) string {
	if lang == "hebrew" {
		return "hebrew"
	}
	return "english"
}

func storyJSON(st *story) gin.H {
	return gin.H{
		"id":               st.ID,
		"title":            st.Title,
		"content":          strings.Join(st.Paragraphs, "\n\n"),
		"language":         st.Language,
		"difficulty_level": st.Difficulty,
		"themes":           []string{st.Theme},
		"total_chapters":   st.TotalChapters,
		"created_at":       st.Created.Format("2006-01-02T15:04:05.999999"),
		"choices":          choicesJSON(st.Choices),
	}
}

func choicesJSON(choices []choice) []gin.H {
	out := make([]gin.H, 0, len(choices))
	for i, ch := range choices {
		out = append(out, gin.H{
			"id":              strconv.Itoa(ch.ID),
			"text":            ch.Text,
			"description":     ch.Description,
			"impact":          ch.Description,
			"option_index":    i,
			"choice_question": "What would you like to do?",
		})
	}
	return out
}

// newChoices allocates choice ids; callers hold s.mu
func (s *Server) newChoices(language string) []choice {
	templates := storyChoices[languageOf(language)]
	out := make([]choice, len(templates))
	for i, t := range templates {
		t.ID = s.allocID()
		out[i] = t
	}
	return out
}

func (s *Server) delay() {
	if s.cfg.Latency > 0 {
		time.Sleep(s.cfg.Latency)
	}
}

func (s *Server) listStories(c *gin.Context) {
	theme := c.Query("theme")
	difficulty := c.Query("difficulty")
	language := c.Query("language")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.stories))
	for id := range s.stories {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	out := []gin.H{}
	for _, id := range ids {
		st := s.stories[id]
		if (theme != "" && st.Theme != theme) || (difficulty != "" && st.Difficulty != difficulty) || (language != "" && st.Language != language) {
			continue
		}
		out = append(out, storyJSON(st))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) generateStory(c *gin.Context) {
	var req struct {
		ChildID       int    `json:"childId" binding:"required"`
		Theme         string `json:"theme" binding:"required"`
		Title         string `json:"title"`
		ChapterNumber int    `json:"chapterNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "childId", err.Error()))
		return
	}
	if req.ChapterNumber <= 0 {
		req.ChapterNumber = 1
	}
	s.delay()

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.ownedChild(c, req.ChildID)
	if ch == nil {
		return
	}

	lang := languageOf(ch.LanguagePreference)
	templates := storyOpenings[lang]
	paragraphs := []string{
		fmt.Sprintf(templates[0], ch.Name, req.Theme),
		templates[1],
		fmt.Sprintf(templates[2], ch.Name),
	}
	title := req.Title
	if title == "" {
		title = strings.ToUpper(req.Theme[:1]) + req.Theme[1:] + " Adventure"
	}

	st := &story{
		ID:            s.allocID(),
		Title:         title,
		Paragraphs:    paragraphs,
		Language:      lang,
		Difficulty:    ch.ReadingLevel,
		Theme:         req.Theme,
		Choices:       s.newChoices(lang),
		TotalChapters: totalChapters,
		Created:       time.Now().UTC(),
	}
	s.stories[st.ID] = st

	c.JSON(http.StatusOK, gin.H{
		"id":                     strconv.Itoa(st.ID),
		"title":                  st.Title,
		"content":                st.Paragraphs,
		"language":               st.Language,
		"readingLevel":           st.Difficulty,
		"theme":                  st.Theme,
		"choices":                choicesJSON(st.Choices),
		"isCompleted":            false,
		"currentChapter":         req.ChapterNumber,
		"totalChapters":          st.TotalChapters,
		"createdAt":              st.Created.Format(time.RFC3339),
		"success":                true,
		"safety_score":           1.0,
		"estimated_reading_time": 5,
	})
}

func (s *Server) getStory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, found := s.stories[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}
	c.JSON(http.StatusOK, storyJSON(st))
}

// recommendations lists stories in the child's language and reading level,
// newest first
func (s *Server) recommendations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("query", "limit", "value is not a valid integer"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch := s.ownedChild(c, id)
	if ch == nil {
		return
	}

	ids := make([]int, 0, len(s.stories))
	for id := range s.stories {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))

	out := []gin.H{}
	for _, id := range ids {
		st := s.stories[id]
		if st.Language != languageOf(ch.LanguagePreference) || st.Difficulty != ch.ReadingLevel {
			continue
		}
		out = append(out, storyJSON(st))
		if len(out) >= limit {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"stories":               out,
		"recommendation_reason": fmt.Sprintf("Based on %s's interests and reading level", ch.Name),
		"personalized":          true,
	})
}

func (s *Server) checkSafety(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	age, err := strconv.Atoi(c.Query("child_age"))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("query", "child_age", "field required"))
		return
	}

	s.mu.Lock()
	_, found := s.stories[id]
	s.mu.Unlock()
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}

	issues := []gin.H{}
	recommendations := []string{}
	safe := age >= 7
	if !safe {
		issues = append(issues, gin.H{"type": "age", "description": "Story targets older readers"})
		recommendations = append(recommendations, "Read together with a parent")
	}
	c.JSON(http.StatusOK, gin.H{
		"is_safe":         safe,
		"safety_score":    map[bool]float64{true: 1.0, false: 0.6}[safe],
		"issues":          issues,
		"recommendations": recommendations,
		"needs_review":    !safe,
	})
}

func sessionJSON(sess *session) gin.H {
	return gin.H{
		"id":                    sess.ID,
		"child_id":              sess.ChildID,
		"story_id":              sess.StoryID,
		"current_chapter":       sess.CurrentChapter,
		"is_completed":          sess.Completed,
		"is_bookmarked":         false,
		"completion_percentage": sess.Completion,
		"words_read":            sess.WordsRead,
		"audio_playback_used":   false,
		"started_at":            sess.Started.Format("2006-01-02T15:04:05.999999"),
		"last_accessed":         sess.LastAccessed.Format("2006-01-02T15:04:05.999999"),
	}
}

func (s *Server) startSession(c *gin.Context) {
	storyID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		ChildID int `json:"child_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "child_id", "field required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownedChild(c, req.ChildID) == nil {
		return
	}
	if _, found := s.stories[storyID]; !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found or not published"})
		return
	}

	for _, sess := range s.sessions {
		if sess.ChildID == req.ChildID && sess.StoryID == storyID && !sess.Completed {
			sess.LastAccessed = time.Now().UTC()
			c.JSON(http.StatusOK, sessionJSON(sess))
			return
		}
	}

	now := time.Now().UTC()
	sess := &session{ID: s.allocID(), ChildID: req.ChildID, StoryID: storyID, CurrentChapter: 1, Started: now, LastAccessed: now}
	s.sessions[sess.ID] = sess
	c.JSON(http.StatusOK, sessionJSON(sess))
}

// ownedSession returns the session when its child belongs to the current
// user; callers hold s.mu
func (s *Server) ownedSession(c *gin.Context, id int) *session {
	sess, found := s.sessions[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Session not found"})
		return nil
	}
	if s.ownedChild(c, sess.ChildID) == nil {
		return nil
	}
	return sess
}

func (s *Server) updateProgress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		WordsRead   int `json:"words_read"`
		ReadingTime int `json:"reading_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "words_read", err.Error()))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.ownedSession(c, id)
	if sess == nil {
		return
	}
	sess.WordsRead += req.WordsRead
	sess.LastAccessed = time.Now().UTC()
	s.children[sess.ChildID].ReadingTime += req.ReadingTime
	c.JSON(http.StatusOK, gin.H{"message": "Progress updated successfully"})
}

func (s *Server) submitChoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		ChoiceID    string `json:"choiceId" binding:"required"`
		OptionIndex int    `json:"optionIndex"`
		CustomText  string `json:"customText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationDetail("body", "choiceId", "field required"))
		return
	}
	s.delay()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.ownedSession(c, id)
	if sess == nil {
		return
	}
	if sess.Completed {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Story already completed"})
		return
	}
	st := s.stories[sess.StoryID]

	picked := req.CustomText
	if req.ChoiceID != "custom-choice" {
		for _, ch := range st.Choices {
			if strconv.Itoa(ch.ID) == req.ChoiceID {
				picked = ch.Text
			}
		}
		if picked == "" {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Choice not found"})
			return
		}
	}

	sess.Choices++
	sess.CurrentChapter++
	ending := sess.CurrentChapter > st.TotalChapters
	sess.Completion = min(100, (sess.CurrentChapter-1)*100/st.TotalChapters)
	var branch string
	if st.Language == "hebrew" {
		branch = fmt.Sprintf("בחרת: %s. הסיפור ממשיך...", picked)
	} else {
		branch = fmt.Sprintf("You chose: %s. The story continues...", picked)
	}

	newChoices := []gin.H{}
	if ending {
		sess.Completed = true
		sess.Completion = 100
		s.children[sess.ChildID].StoriesCompleted++
	} else {
		st.Choices = s.newChoices(st.Language)
		newChoices = choicesJSON(st.Choices)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"branch_content":        branch,
		"is_ending":             ending,
		"next_chapter":          sess.CurrentChapter,
		"completion_percentage": sess.Completion,
		"new_choices":           newChoices,
	})
}
