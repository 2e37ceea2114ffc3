package models

import "fmt"

// ItemType represents the kind of catalog entry a service returned
type ItemType string

const (
	ItemTypeSeries  ItemType = "tv_series"
	ItemTypeMovie   ItemType = "movie"
	ItemTypeEpisode ItemType = "episode"
	ItemTypeChannel ItemType = "channel"
)

func (t ItemType) String() string {
	return string(t)
}

// Playable reports whether entries of this type carry a main video
func (t ItemType) Playable() bool {
	return t == ItemTypeMovie || t == ItemTypeEpisode
}

// Image is a raw image descriptor as it appears in catalog responses
type Image struct {
	Type        string `json:"type"`
	Orientation string `json:"orientation"`
	Link        string `json:"link"`
}

// Video is a raw media-variant descriptor as it appears in catalog responses
type Video struct {
	Usage    string  `json:"usage"`
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Art holds the resolved image slots for display
type Art struct {
	Thumb  string `json:"thumb,omitempty"`
	Fanart string `json:"fanart,omitempty"`
	Poster string `json:"poster,omitempty"`
}

// Item is a normalized catalog record
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        ItemType `json:"type"`
	Number      int      `json:"number,omitempty"`
	Art         Art      `json:"art"`

	// Main video fields, populated for movie/episode items only
	VideoID  string `json:"video_id,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`

	TrailerID string `json:"trailer_id,omitempty"`
}

// Season groups normalized episodes of a series detail record
type Season struct {
	Number   int    `json:"number"`
	Episodes []Item `json:"episodes"`
}

// ShowDetail is a normalized series detail record
type ShowDetail struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Art         Art      `json:"art"`
	Seasons     []Season `json:"seasons"`
}

// Channel is a normalized live-channel record. StreamURL is empty when the
// directory entry carries no stream source; such channels are unplayable.
type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
	StreamURL   string `json:"stream_url,omitempty"`
}

// Playback is the pair of URLs required to start DRM playback
type Playback struct {
	StreamURL  string `json:"stream_url"`
	LicenseURL string `json:"license_url"`
}

const (
	imageTypePoster     = "poster"
	imageTypeBackground = "background"
	imageTypeHero       = "hero"

	orientationSquare   = "square"
	orientationPortrait = "portrait"

	videoUsageMain    = "main"
	videoUsageTrailer = "trailer"
)

// SelectArt resolves image slots from a raw descriptor list. Images are
// scanned in response order:
//
//   - a poster fills an empty thumb slot; a square poster also displaces a
//     non-square thumb, but never an earlier square one
//   - a background always takes the fanart slot
//   - a hero takes the fanart slot only while it is empty
//   - a portrait poster fills an empty poster slot
//
// Selected links get the service's "/x{height}" size suffix. Slots still
// empty afterwards are filled from def, without a size suffix.
func SelectArt(images []Image, def Art, thumbHeight, fanartHeight int) Art {
	var art Art
	thumbSquare := false

	for _, img := range images {
		switch img.Type {
		case imageTypePoster:
			square := img.Orientation == orientationSquare
			if art.Thumb == "" || (square && !thumbSquare) {
				art.Thumb = sizedLink(img.Link, thumbHeight)
				thumbSquare = square
			}
			if img.Orientation == orientationPortrait && art.Poster == "" {
				art.Poster = sizedLink(img.Link, thumbHeight)
			}
		case imageTypeBackground:
			art.Fanart = sizedLink(img.Link, fanartHeight)
		case imageTypeHero:
			if art.Fanart == "" {
				art.Fanart = sizedLink(img.Link, fanartHeight)
			}
		}
	}

	if art.Thumb == "" {
		art.Thumb = def.Thumb
	}
	if art.Fanart == "" {
		art.Fanart = def.Fanart
	}
	if art.Poster == "" {
		art.Poster = def.Poster
	}
	return art
}

func sizedLink(link string, height int) string {
	if height <= 0 {
		return link
	}
	return fmt.Sprintf("%s/x%d", link, height)
}

// SelectVideos picks the main and trailer variants from a raw descriptor
// list. The last entry of each usage tag wins; other usages are ignored.
// Either result may be nil.
func SelectVideos(videos []Video) (main, trailer *Video) {
	for i := range videos {
		switch videos[i].Usage {
		case videoUsageMain:
			main = &videos[i]
		case videoUsageTrailer:
			trailer = &videos[i]
		}
	}
	return
}
