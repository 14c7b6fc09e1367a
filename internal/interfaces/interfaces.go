// Package interfaces defines the domain types shared across the console and
// the interfaces used for dependency injection between the backend client,
// configuration, authentication and the UI.
package interfaces

import (
	"context"
	"time"
)

// Profile represents a named configuration for talking to one backend
type Profile struct {
	Name     string            `yaml:"name"`
	APIURL   string            `yaml:"apiUrl"`
	Theme    string            `yaml:"theme"`
	Language string            `yaml:"language,omitempty"`
	Speech   SpeechConfig      `yaml:"speech"`
	Auth     AuthConfig        `yaml:"auth"`
	Metadata map[string]string `yaml:"metadata,omitempty"`
}

// AuthConfig represents the credentials saved with a profile
type AuthConfig struct {
	Type         string `yaml:"type"` // "bearer", "none"
	Email        string `yaml:"email,omitempty"`
	Token        string `yaml:"token,omitempty"`
	RefreshToken string `yaml:"refreshToken,omitempty"`
}

// SpeechConfig configures read-aloud playback
type SpeechConfig struct {
	Enabled bool    `yaml:"enabled"`
	Command string  `yaml:"command,omitempty"`
	Rate    float64 `yaml:"rate,omitempty"`
	Pitch   float64 `yaml:"pitch,omitempty"`
}

// Theme represents visual styling configuration
type Theme struct {
	Name      string `yaml:"name"`
	Success   string `yaml:"success"`
	Error     string `yaml:"error"`
	Warning   string `yaml:"warning"`
	Info      string `yaml:"info"`
	Accent    string `yaml:"accent"`
	Muted     string `yaml:"muted"`
	Assistant string `yaml:"assistant"`
	User      string `yaml:"user"`
}

// ConfigManager handles profile management
type ConfigManager interface {
	// LoadProfile retrieves a profile by name from the configuration file
	LoadProfile(name string) (*Profile, error)

	// SaveProfile persists a profile to the configuration file
	SaveProfile(profile *Profile) error

	// ListProfiles returns all available profile names
	ListProfiles() ([]string, error)

	// LoadTheme retrieves theme configuration by name
	LoadTheme(name string) (*Theme, error)

	// ValidateProfile ensures profile has all required fields
	ValidateProfile(profile *Profile) error

	// GetConfigPath returns the path to the configuration file
	GetConfigPath() string
}

// User is the signed-in parent account
type User struct {
	ID         ID         `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  Timestamp  `json:"created_at"`
	LastLogin  *Timestamp `json:"last_login,omitempty"`
}

// AuthTokens is the token pair issued by the backend
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// AuthResponse is returned by login and register
type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Tokens returns the token pair carried by the response
func (r *AuthResponse) Tokens() AuthTokens {
	return AuthTokens{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is the generic {"message": ...} acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// Reading levels accepted by the backend
const (
	ReadingBeginner     = "beginner"
	ReadingIntermediate = "intermediate"
	ReadingAdvanced     = "advanced"
)

// Child age limits enforced by the backend
const (
	MinChildAge = 7
	MaxChildAge = 12
)

// Interests accepted for a child profile
var Interests = []string{
	"animals", "adventure", "fantasy", "science", "mystery", "friendship",
	"family", "sports", "music", "art", "nature",
}

// ValidInterest reports whether interest is one the backend accepts
func ValidInterest(interest string) bool {
	for _, known := range Interests {
		if known == interest {
			return true
		}
	}
	return false
}

// Child is a reader profile owned by the signed-in parent
type Child struct {
	ID                     ID         `json:"id"`
	Name                   string     `json:"name"`
	Age                    int        `json:"age"`
	LanguagePreference     string     `json:"language_preference"`
	ReadingLevel           string     `json:"reading_level"`
	Interests              []string   `json:"interests"`
	AvatarURL              string     `json:"avatar_url,omitempty"`
	TotalStoriesCompleted  int        `json:"total_stories_completed"`
	TotalReadingTime       int        `json:"total_reading_time"`
	CurrentReadingStreak   int        `json:"current_reading_streak"`
	LongestReadingStreak   int        `json:"longest_reading_streak"`
	VocabularyWordsLearned int        `json:"vocabulary_words_learned"`
	LastActive             *Timestamp `json:"last_active,omitempty"`
}

// ChildInput is the body for creating or updating a child profile. Nil
// fields are left unchanged on update.
type ChildInput struct {
	Name               *string  `json:"name,omitempty"`
	Age                *int     `json:"age,omitempty"`
	LanguagePreference *string  `json:"language_preference,omitempty"`
	ReadingLevel       *string  `json:"reading_level,omitempty"`
	Interests          []string `json:"interests,omitempty"`
	AvatarURL          *string  `json:"avatar_url,omitempty"`
}

// SessionSummary is a short description of a reading session
type SessionSummary struct {
	SessionID            ID     `json:"session_id"`
	StoryTitle           string `json:"story_title"`
	CompletionPercentage int    `json:"completion_percentage"`
	DurationMinutes      int    `json:"duration_minutes"`
	WordsRead            int    `json:"words_read"`
	ChoicesMade          int    `json:"choices_made"`
	AudioUsed            bool   `json:"audio_used"`
	Completed            bool   `json:"completed"`
	Date                 string `json:"date,omitempty"`
}

// ChildDashboard is returned by GET /children/{id}/dashboard
type ChildDashboard struct {
	Child              Child           `json:"child"`
	CurrentStory       *SessionSummary `json:"current_story,omitempty"`
	RecentAchievements []string        `json:"recent_achievements"`
	ReadingStreak      int             `json:"reading_streak"`
	StoriesThisWeek    int             `json:"stories_this_week"`
	ReadingTimeToday   int             `json:"reading_time_today"`
	RecommendedStories []Story         `json:"recommended_stories"`
}

// ChildSummary is one row of the parent dashboard
type ChildSummary struct {
	ChildID                  ID         `json:"child_id"`
	Name                     string     `json:"name"`
	Age                      int        `json:"age"`
	ReadingLevel             string     `json:"reading_level"`
	StoriesCompletedThisWeek int        `json:"stories_completed_this_week"`
	ReadingTimeThisWeek      int        `json:"reading_time_this_week"`
	CurrentStreak            int        `json:"current_streak"`
	LastActive               *Timestamp `json:"last_active,omitempty"`
}

// ParentDashboard is returned by GET /analytics/dashboard
type ParentDashboard struct {
	ParentName             string              `json:"parent_name"`
	ChildrenSummary        []ChildSummary      `json:"children_summary"`
	TotalFamilyReadingTime int                 `json:"total_family_reading_time"`
	TotalStoriesCompleted  int                 `json:"total_stories_completed"`
	MostActiveChild        string              `json:"most_active_child,omitempty"`
	FamilyReadingStreak    int                 `json:"family_reading_streak"`
	Recommendations        []string            `json:"recommendations"`
	RecentAchievements     []map[string]string `json:"recent_achievements"`
}

// Progress report periods accepted by the backend
const (
	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
	PeriodYear    = "year"
)

// ProgressPeriods lists the report periods from shortest to longest
var ProgressPeriods = []string{PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear}

// ProgressReport is returned by GET /analytics/child/{id}/progress.
// TotalReadingTime is in minutes.
type ProgressReport struct {
	ChildID             ID                   `json:"child_id"`
	ChildName           string               `json:"child_name"`
	Period              string               `json:"period"`
	StartDate           *Timestamp           `json:"start_date,omitempty"`
	EndDate             *Timestamp           `json:"end_date,omitempty"`
	InitialReadingLevel string               `json:"initial_reading_level"`
	CurrentReadingLevel string               `json:"current_reading_level"`
	LevelImprovement    float64              `json:"reading_level_improvement"`
	TotalReadingTime    int                  `json:"total_reading_time"`
	StoriesCompleted    int                  `json:"stories_completed"`
	VocabularyGrowth    int                  `json:"vocabulary_growth"`
	ComprehensionTrends []map[string]float64 `json:"comprehension_trends"`
	ReadingSpeedTrends  []map[string]int     `json:"reading_speed_trends"`
	Recommendations     []string             `json:"recommendations"`
}

// StoryRecommendation is returned by GET /stories/recommendations/{child_id}
type StoryRecommendation struct {
	Stories      []Story `json:"stories"`
	Reason       string  `json:"recommendation_reason"`
	Personalized bool    `json:"personalized"`
}

// Choice is one option offered at a decision point of a story
type Choice struct {
	ID          ID     `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	Impact      string `json:"impact,omitempty"`
	NextChapter *int   `json:"nextChapter,omitempty"`
	OptionIndex int    `json:"option_index,omitempty"`
	Question    string `json:"choice_question,omitempty"`
}

// Story is a generated or stored story. Content holds paragraphs in reading
// order.
type Story struct {
	ID             ID        `json:"id"`
	Title          string    `json:"title"`
	Content        []string  `json:"content"`
	Language       string    `json:"language"`
	ReadingLevel   string    `json:"readingLevel"`
	Theme          string    `json:"theme"`
	Choices        []Choice  `json:"choices"`
	IsCompleted    bool      `json:"isCompleted"`
	CurrentChapter int       `json:"currentChapter"`
	TotalChapters  int       `json:"totalChapters"`
	CreatedAt      time.Time `json:"createdAt"`
}

// StoryFilter narrows GET /stories
type StoryFilter struct {
	ChildID    ID
	Theme      string
	Difficulty string
	Language   string
	Limit      int
}

// GenerateStoryRequest is the body of POST /stories/generate
type GenerateStoryRequest struct {
	ChildID       ID     `json:"childId"`
	Theme         string `json:"theme"`
	Title         string `json:"title,omitempty"`
	ChapterNumber int    `json:"chapterNumber"`
}

// CustomChoiceID marks a choice that carries the reader's own text
const CustomChoiceID = "custom-choice"

// ChoiceRequest is the body of POST /stories/sessions/{id}/choices
type ChoiceRequest struct {
	ChoiceID    string `json:"choiceId"`
	OptionIndex int    `json:"optionIndex"`
	Timestamp   string `json:"timestamp,omitempty"`
	CustomText  string `json:"customText,omitempty"`
}

// ChoiceResult is the next chapter produced by a choice
type ChoiceResult struct {
	Success              bool     `json:"success"`
	BranchContent        string   `json:"branch_content"`
	IsEnding             bool     `json:"is_ending"`
	NextChapter          int      `json:"next_chapter"`
	CompletionPercentage int      `json:"completion_percentage"`
	NewChoices           []Choice `json:"new_choices"`
	Error                string   `json:"error,omitempty"`
}

// StorySession tracks one child's progress through one story
type StorySession struct {
	ID                   ID         `json:"id"`
	ChildID              ID         `json:"child_id"`
	StoryID              ID         `json:"story_id"`
	CurrentChapter       int        `json:"current_chapter"`
	IsCompleted          bool       `json:"is_completed"`
	IsBookmarked         bool       `json:"is_bookmarked"`
	CompletionPercentage int        `json:"completion_percentage"`
	WordsRead            int        `json:"words_read"`
	AudioPlaybackUsed    bool       `json:"audio_playback_used"`
	StartedAt            *Timestamp `json:"started_at,omitempty"`
	LastAccessed         *Timestamp `json:"last_accessed,omitempty"`
}

// ReadingProgress is the body of PUT /stories/sessions/{id}/progress
type ReadingProgress struct {
	SessionID         ID     `json:"session_id"`
	WordsRead         int    `json:"words_read"`
	ReadingTime       int    `json:"reading_time"`
	CurrentPosition   string `json:"current_position"`
	AudioPlaybackTime int    `json:"audio_playback_time,omitempty"`
	PauseCount        int    `json:"pause_count,omitempty"`
}

// SafetyIssue describes one concern raised by the content safety check
type SafetyIssue map[string]string

// SafetyCheck is returned by POST /stories/{id}/check-safety
type SafetyCheck struct {
	IsSafe          bool          `json:"is_safe"`
	SafetyScore     float64       `json:"safety_score"`
	Issues          []SafetyIssue `json:"issues"`
	Recommendations []string      `json:"recommendations"`
	NeedsReview     bool          `json:"needs_review"`
}

// HealthStatus is returned by GET /health
type HealthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// BackendHealth represents the last known health of the backend
type BackendHealth struct {
	APIURL       string        `json:"apiUrl"`
	Status       string        `json:"status"` // "ready", "offline", "error", "checking"
	LastChecked  time.Time     `json:"lastChecked"`
	ResponseTime time.Duration `json:"responseTime,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Health states
const (
	HealthReady    = "ready"
	HealthOffline  = "offline"
	HealthError    = "error"
	HealthChecking = "checking"
)

// StoryBackend is the subset of the backend client used by the UI and stores
type StoryBackend interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, email string) (*MessageResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error)

	ListChildren(ctx context.Context) ([]Child, error)
	CreateChild(ctx context.Context, input ChildInput) (*Child, error)
	GetChild(ctx context.Context, id ID) (*Child, error)
	UpdateChild(ctx context.Context, id ID, input ChildInput) (*Child, error)
	DeleteChild(ctx context.Context, id ID) error
	ChildDashboard(ctx context.Context, id ID) (*ChildDashboard, error)
	ParentDashboard(ctx context.Context) (*ParentDashboard, error)
	ProgressReport(ctx context.Context, childID ID, period string) (*ProgressReport, error)

	ListStories(ctx context.Context, filter StoryFilter) ([]Story, error)
	GenerateStory(ctx context.Context, req GenerateStoryRequest) (*Story, error)
	GetStory(ctx context.Context, id ID) (*Story, error)
	Recommendations(ctx context.Context, childID ID, limit int) (*StoryRecommendation, error)
	CheckSafety(ctx context.Context, id ID, childAge int, language string) (*SafetyCheck, error)
	StartSession(ctx context.Context, storyID, childID ID) (*StorySession, error)
	UpdateProgress(ctx context.Context, sessionID ID, progress ReadingProgress) error
	SubmitChoice(ctx context.Context, sessionID ID, req ChoiceRequest) (*ChoiceResult, error)

	Health(ctx context.Context) (*HealthStatus, error)
}

// TokenSource supplies and renews the bearer tokens used by the backend client
type TokenSource interface {
	// AccessToken returns the current access token, or "" when signed out
	AccessToken() string

	// RefreshToken returns the current refresh token, or "" when signed out
	RefreshToken() string

	// UpdateTokens replaces the stored token pair
	UpdateTokens(tokens AuthTokens) error

	// ClearTokens forgets both tokens
	ClearTokens() error
}

// AuthManager handles credential storage for profiles
type AuthManager interface {
	TokenSource

	// ValidateToken verifies the format and basic validity of a bearer token
	ValidateToken(token string) error

	// CreateAuthHeader constructs the Authorization header value
	CreateAuthHeader(token string) (string, error)

	// AccessTokenExpired reports whether the access token expires within skew
	AccessTokenExpired(skew time.Duration) bool
}
