package protocol

import (
	"time"

	"github.com/storynest/console/internal/interfaces"
)

// Default timeouts
const (
	DefaultRequestTimeout = 60 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
	RefreshTimeout        = 10 * time.Second

	// RefreshSkew is how close to its expiry an access token is refreshed
	// before it is sent
	RefreshSkew = 30 * time.Second
)

// ClientVersion is reported in the User-Agent header
const ClientVersion = "1.0.0"

// Backend endpoints, relative to the API base URL
const (
	EndpointLogin          = "/auth/login"
	EndpointRegister       = "/auth/register"
	EndpointRefresh        = "/auth/refresh"
	EndpointLogout         = "/auth/logout"
	EndpointForgotPassword = "/auth/forgot-password"
	EndpointResetPassword  = "/auth/reset-password"

	EndpointChildren        = "/children/"
	EndpointChild           = "/children/%s"
	EndpointChildDashboard  = "/children/%s/dashboard"
	EndpointParentDashboard = "/analytics/dashboard"
	EndpointChildProgress   = "/analytics/child/%s/progress"

	EndpointStories         = "/stories/"
	EndpointGenerateStory   = "/stories/generate"
	EndpointStory           = "/stories/%s"
	EndpointRecommendations = "/stories/recommendations/%s"
	EndpointCheckSafety     = "/stories/%s/check-safety"
	EndpointStartSession    = "/stories/%s/sessions"
	EndpointUpdateProgress  = "/stories/sessions/%s/progress"
	EndpointSubmitChoice    = "/stories/sessions/%s/choices"

	// EndpointHealth is served at the server root, outside the API prefix
	EndpointHealth = "/health"
)

// authMode selects the Authorization header sent with a request
type authMode int

const (
	authNone authMode = iota
	authAccess
	authRefresh
)

// RequestStatistics tracks request outcomes for the diagnostics panel
type RequestStatistics struct {
	TotalRequests       int64         `json:"totalRequests"`
	SuccessfulRequests  int64         `json:"successfulRequests"`
	FailedRequests      int64         `json:"failedRequests"`
	TokenRefreshes      int64         `json:"tokenRefreshes"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	LastRequestTime     time.Time     `json:"lastRequestTime,omitempty"`
	LastError           string        `json:"lastError,omitempty"`
}

// errorResponse is the FastAPI error body. Detail is a string for
// HTTPException and a list of field errors for request validation.
type errorResponse struct {
	Detail interface{} `json:"detail"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type startSessionRequest struct {
	ChildID interfaces.ID `json:"child_id"`
}
