package showmax

import (
	"encoding/json"

	"github.com/vodkit/vodkit/models"
)

// Asset is a raw catalog entry as the listing and detail endpoints return
// it. Detail responses additionally carry seasons.
type Asset struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Type        string         `json:"type"`
	Number      int            `json:"number"`
	Total       int            `json:"total"`
	Images      []models.Image `json:"images"`
	Videos      []models.Video `json:"videos"`
	Seasons     []SeasonAsset  `json:"seasons"`
}

// SeasonAsset groups the episodes of one season in a detail response
type SeasonAsset struct {
	Number   int     `json:"number"`
	Episodes []Asset `json:"episodes"`
}

// cataloguePage is one page of the listing endpoint. The counters are
// pointers so a missing field is distinguishable from zero; pagination
// treats absence as a data error rather than looping.
type cataloguePage struct {
	Items     []Asset `json:"items"`
	Count     *int    `json:"count"`
	Remaining *int    `json:"remaining"`
}

// currentUser is the token-validation response. ErrorCode stays nil when
// the token is accepted.
type currentUser struct {
	UserID    json.Number     `json:"user_id"`
	ErrorCode json.RawMessage `json:"error_code"`
	Message   string          `json:"message"`
}

// playbackDescriptor is the first step of the playback exchange
type playbackDescriptor struct {
	URL             string `json:"url"`
	PackagingTaskID string `json:"packaging_task_id"`
	SessionID       string `json:"session_id"`
}

// verifyResponse carries the opaque DRM license request blob
type verifyResponse struct {
	LicenseRequest string `json:"license_request"`
}
