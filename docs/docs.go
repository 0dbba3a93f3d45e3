// Package docs CrimeShield API.
//
// Documentation of the CrimeShield crime report API.
//
//	Schemes: https
//	BasePath: /
//	Version: 1.0.0
//	Host: api.crimeshield.app
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//
//	Security:
//	- bearer
//
//	SecurityDefinitions:
//	basic:
//	 type: basic
//	bearer:
//	 type: apiKey
//	 name: Authorization
//	 in: header
//
// swagger:meta
package docs

import (
	"github.com/crimeshield/crimeshield-api/api/handlers"
	"github.com/crimeshield/crimeshield-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /posts posts listPosts
// Lists visible reports, newest first.
// responses:
//   200: postsResponse

// A page of reports
// swagger:response postsResponse
type postsResponseWrapper struct {
	// in:body
	Body models.PaginatedResponse
}

// swagger:parameters listPosts
type listPostsParams struct {
	// in:query
	Category string `json:"category"`
	// in:query
	ThreatLevel string `json:"threatLevel"`
	// in:query
	Source string `json:"source"`
	// in:query
	UserEmail string `json:"userEmail"`
	// in:query
	Q string `json:"q"`
	// in:query
	Page int `json:"page"`
	// in:query
	Limit int `json:"limit"`
}

// swagger:route POST /posts posts createPost
// Files a new report.
// responses:
//   201: postResponse

// swagger:parameters createPost
type createPostParams struct {
	// in:body
	Body handlers.PostRequest
}

// swagger:route GET /posts/{id} posts postByID
// Gets a single report by ID.
// responses:
//   200: postResponse

// A single report
// swagger:response postResponse
type postResponseWrapper struct {
	// in:body
	Body models.Report
}

// swagger:parameters postByID
type postIDParam struct {
	// in:path
	ID string `json:"id"`
}

// swagger:route GET /posts/heatmap posts heatmap
// Weighted points of every located report.
// responses:
//   200: heatmapResponse

// Heatmap points
// swagger:response heatmapResponse
type heatmapResponseWrapper struct {
	// in:body
	Body []models.HeatmapPoint
}

// swagger:route GET /posts/leaderboard posts leaderboard
// Top reporters by number of reports.
// responses:
//   200: leaderboardResponse

// Leaderboard entries
// swagger:response leaderboardResponse
type leaderboardResponseWrapper struct {
	// in:body
	Body []models.LeaderboardEntry
}

// swagger:route POST /posts/{id}/comments comments createComment
// Adds a comment to a report.
// responses:
//   200: commentResponse

// swagger:parameters createComment
type createCommentParams struct {
	// in:path
	ID string `json:"id"`
	// in:body
	Body handlers.CommentRequest
}

// The stored comment
// swagger:response commentResponse
type commentResponseWrapper struct {
	// in:body
	Body models.Comment
}

// swagger:route POST /posts/{id}/votes votes vote
// Toggles an authenticity vote.
// responses:
//   200: voteResponse

// Vote totals
// swagger:response voteResponse
type voteResponseWrapper struct {
	// in:body
	Body models.VoteTally
}

// swagger:route GET /crawler/status crawler crawlerStatus
// Progress of the news crawler. Requires an admin token.
// responses:
//   200: crawlerStatusResponse

// Crawler progress
// swagger:response crawlerStatusResponse
type crawlerStatusResponseWrapper struct {
	// in:body
	Body models.CrawlerStatus
}
