package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Report sources
const (
	SourceUser   = "user"
	SourceNews   = "news"
	SourceReddit = "reddit"
)

// Report moderation states
const (
	StatusActive  = "active"
	StatusFlagged = "flagged"
	StatusHidden  = "hidden"
)

// Categories lists the incident categories a report can be filed under
var Categories = []string{
	"theft", "assault", "vandalism", "fraud", "burglary",
	"harassment", "drug", "cybercrime", "traffic", "other",
}

// ThreatLevels lists the accepted threat levels, lowest first
var ThreatLevels = []string{"low", "medium", "high", "critical"}

// ReactionTypes lists the reactions a user can leave on a report
var ReactionTypes = []string{"like", "helpful", "concerned", "angry", "sad"}

// Authenticity votes
const (
	VoteAuthentic = "authentic"
	VoteFake      = "fake"
)

// Report holds the structure for the reports collection in mongo
type Report struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id"`
	Title             string             `json:"title" bson:"title"`
	Description       string             `json:"description" bson:"description"`
	Location          Location           `json:"location" bson:"location"`
	Category          string             `json:"category" bson:"category"`
	ThreatLevel       string             `json:"threatLevel" bson:"threatLevel"`
	UserEmail         string             `json:"userEmail" bson:"userEmail"`
	Anonymous         bool               `json:"anonymous" bson:"anonymous"`
	Attachments       []Attachment       `json:"attachments" bson:"attachments"`
	Comments          []Comment          `json:"comments" bson:"comments"`
	Reactions         []Reaction         `json:"reactions" bson:"reactions"`
	AuthenticityVotes []AuthenticityVote `json:"authenticityVotes" bson:"authenticityVotes"`
	Sentiment         Sentiment          `json:"sentiment" bson:"sentiment"`
	AIAnalysis        *AIAnalysis        `json:"aiAnalysis,omitempty" bson:"aiAnalysis,omitempty"`
	Source            string             `json:"source" bson:"source"`
	SourceURL         string             `json:"sourceUrl,omitempty" bson:"sourceUrl,omitempty"`
	SourceHash        string             `json:"sourceHash,omitempty" bson:"sourceHash,omitempty"`
	ImageURL          string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	PublishedAt       primitive.DateTime `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
	Status            string             `json:"status" bson:"status"`
	Moderation        *Moderation        `json:"moderation,omitempty" bson:"moderation,omitempty"`
	CreatedAt         primitive.DateTime `json:"createdAt" bson:"createdAt"`
	UpdatedAt         primitive.DateTime `json:"updatedAt" bson:"updatedAt"`
}

// Location is where an incident happened. Lat/Lng are zero when unknown.
type Location struct {
	Address string  `json:"address" bson:"address"`
	City    string  `json:"city,omitempty" bson:"city,omitempty"`
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
}

// HasCoordinates reports whether the location was geocoded
func (l Location) HasCoordinates() bool {
	return l.Lat != 0 || l.Lng != 0
}

// Attachment is a file uploaded alongside a report
type Attachment struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId,omitempty" bson:"publicId,omitempty"`
	Type     string `json:"type" bson:"type"`
	Name     string `json:"name" bson:"name"`
	Size     int64  `json:"size" bson:"size"`
}

// Comment holds a single comment appended to a report
type Comment struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	UserName  string             `json:"userName" bson:"userName"`
	Text      string             `json:"text" bson:"text"`
	Sentiment string             `json:"sentiment" bson:"sentiment"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Reaction is a user's reaction to a report. A user holds at most one.
type Reaction struct {
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	Type      string             `json:"type" bson:"type"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// AuthenticityVote is a user's judgement on whether a report is genuine
type AuthenticityVote struct {
	UserEmail string             `json:"userEmail" bson:"userEmail"`
	Vote      string             `json:"vote" bson:"vote"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// Sentiment aggregates the sentiment of a report's comments
type Sentiment struct {
	Overall string          `json:"overall" bson:"overall"`
	Counts  SentimentCounts `json:"counts" bson:"counts"`
}

// SentimentCounts holds per-label comment counts
type SentimentCounts struct {
	Positive int `json:"positive" bson:"positive"`
	Neutral  int `json:"neutral" bson:"neutral"`
	Negative int `json:"negative" bson:"negative"`
}

// Add adjusts the counter for label by delta, ignoring unknown labels
func (c *SentimentCounts) Add(label string, delta int) {
	switch label {
	case "positive":
		c.Positive += delta
	case "negative":
		c.Negative += delta
	case "neutral":
		c.Neutral += delta
	}
}

// Overall returns the dominant label. Ties and empty counts resolve to neutral.
func (c SentimentCounts) Overall() string {
	switch {
	case c.Positive > c.Negative && c.Positive > c.Neutral:
		return "positive"
	case c.Negative > c.Positive && c.Negative > c.Neutral:
		return "negative"
	default:
		return "neutral"
	}
}

// Moderation records the last moderation action on a report
type Moderation struct {
	FlaggedBy   string             `json:"flaggedBy,omitempty" bson:"flaggedBy,omitempty"`
	Reason      string             `json:"reason,omitempty" bson:"reason,omitempty"`
	ModeratedBy string             `json:"moderatedBy,omitempty" bson:"moderatedBy,omitempty"`
	ModeratedAt primitive.DateTime `json:"moderatedAt,omitempty" bson:"moderatedAt,omitempty"`
}

// AIAnalysis holds the combined output of the third-party classifiers
type AIAnalysis struct {
	Summary              string             `json:"summary" bson:"summary"`
	SuggestedCategory    string             `json:"suggestedCategory" bson:"suggestedCategory"`
	SuggestedThreatLevel string             `json:"suggestedThreatLevel" bson:"suggestedThreatLevel"`
	IsCrimeRelated       bool               `json:"isCrimeRelated" bson:"isCrimeRelated"`
	Confidence           float64            `json:"confidence" bson:"confidence"`
	Tags                 []string           `json:"tags" bson:"tags"`
	AIGeneratedScore     float64            `json:"aiGeneratedScore" bson:"aiGeneratedScore"`
	DeepfakeScore        float64            `json:"deepfakeScore" bson:"deepfakeScore"`
	DeepfakeFlag         bool               `json:"deepfakeFlag" bson:"deepfakeFlag"`
	Sentiment            string             `json:"sentiment" bson:"sentiment"`
	Language             string             `json:"language,omitempty" bson:"language,omitempty"`
	Providers            map[string]string  `json:"providers" bson:"providers"`
	AnalyzedAt           primitive.DateTime `json:"analyzedAt" bson:"analyzedAt"`
}

// ReactionCounts tallies reactions by type
func (r Report) ReactionCounts() map[string]int {
	counts := make(map[string]int, len(ReactionTypes))
	for _, t := range ReactionTypes {
		counts[t] = 0
	}
	for _, re := range r.Reactions {
		counts[re.Type]++
	}
	return counts
}

// VoteTally holds the authenticity vote totals for a report
type VoteTally struct {
	Authentic int     `json:"authentic"`
	Fake      int     `json:"fake"`
	Score     float64 `json:"score"`
}

// VoteTally counts the authenticity votes. Score is authentic/(authentic+fake), 0 without votes.
func (r Report) VoteTally() VoteTally {
	var t VoteTally
	for _, v := range r.AuthenticityVotes {
		switch v.Vote {
		case VoteAuthentic:
			t.Authentic++
		case VoteFake:
			t.Fake++
		}
	}
	if total := t.Authentic + t.Fake; total > 0 {
		t.Score = float64(t.Authentic) / float64(total)
	}
	return t
}

// Contains reports whether v is one of values
func Contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ThreatWeight maps a threat level to a heatmap weight in 1..4
func ThreatWeight(level string) int {
	for i, l := range ThreatLevels {
		if l == level {
			return i + 1
		}
	}
	return 1
}
