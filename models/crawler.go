package models

import "time"

// CrawlerStatus is a point-in-time view of the news crawler
type CrawlerStatus struct {
	Running       bool      `json:"running"`
	StopRequested bool      `json:"stopRequested"`
	StartedAt     time.Time `json:"startedAt,omitempty"`
	FinishedAt    time.Time `json:"finishedAt,omitempty"`
	Sources       []string  `json:"sources"`
	SourcesDone   int       `json:"sourcesDone"`
	Discovered    int       `json:"discovered"`
	Processed     int       `json:"processed"`
	Inserted      int       `json:"inserted"`
	Updated       int       `json:"updated"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	CurrentURL    string    `json:"currentUrl,omitempty"`
	LastError     string    `json:"lastError,omitempty"`
	Errors        []string  `json:"errors"`
}

// ArticleLink is a candidate article found on a listing page
type ArticleLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// HeatmapPoint is a single weighted point on the incident heatmap
type HeatmapPoint struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Weight   int     `json:"weight"`
	Category string  `json:"category"`
}

// LeaderboardEntry is a reporter and the number of reports they filed
type LeaderboardEntry struct {
	UserEmail string `json:"userEmail" bson:"_id"`
	Reports   int    `json:"reports" bson:"reports"`
}

// CategoryCount is the number of visible reports in a category
type CategoryCount struct {
	Category string `json:"category" bson:"_id"`
	Count    int    `json:"count" bson:"count"`
}
