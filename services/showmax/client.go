package showmax

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/htmlform"
	"github.com/vodkit/vodkit/services/session"
	"github.com/vodkit/vodkit/services/userdata"
)

const ServiceName = "showmax"

const (
	apiURLFlag    = "showmax-api-url"
	signinURLFlag = "showmax-signin-url"
)

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   apiURLFlag,
			Usage:  "showmax api base url",
			Value:  "https://api.showmax.com/v97.3/android",
			EnvVar: "SHOWMAX_API_URL",
		},
		cli.StringFlag{
			Name:   signinURLFlag,
			Usage:  "showmax sign-in page url",
			Value:  "https://secure.showmax.com/v97.3/android/signin",
			EnvVar: "SHOWMAX_SIGNIN_URL",
		},
	)
}

const (
	pageSize = 60

	lang         = "eng"
	rating       = "adults"
	subscription = "full"
	sortOrder    = "alphabet"
	encoding     = "mpd_widevine_modular"

	signinFormID = "new_signin"
	oauthCookie  = "showmax_oauth"

	thumbHeight  = 500
	fanartHeight = 720

	listExpiry   = 24 * time.Hour
	detailExpiry = 24 * time.Hour

	sectionKids = "kids"
)

// Field selections are part of the server contract; the listing endpoint
// only returns what is asked for.
var (
	listFields   = []string{"id", "images", "title", "items", "total", "type", "description", "videos"}
	detailFields = []string{"id", "images", "title", "items", "total", "type", "description", "videos", "number", "seasons", "episodes"}
)

// Client is the Showmax catalog and playback client. One instance owns its
// Session exclusively; NewSession replaces the session rather than
// mutating it across login state changes.
type Client struct {
	cl     *http.Client
	data   *userdata.Store
	cache  *cache.Cache
	apiURL string
	signin string

	sess     *session.Session
	LoggedIn bool
}

func New(c *cli.Context, cl *http.Client, data *userdata.Store, ch *cache.Cache) *Client {
	return NewWith(cl, c.String(apiURLFlag), c.String(signinURLFlag), data, ch)
}

func NewWith(cl *http.Client, apiURL, signinURL string, data *userdata.Store, ch *cache.Cache) *Client {
	s := &Client{
		cl:     cl,
		data:   data,
		cache:  ch,
		apiURL: strings.TrimSuffix(apiURL, "/"),
		signin: signinURL,
	}
	s.NewSession()
	return s
}

// NewSession discards any existing session, creates a fresh one with base
// headers and restores a persisted token if present. Safe to call once per
// invocation; no state leaks from a prior session.
func (s *Client) NewSession() {
	s.LoggedIn = false
	s.sess = session.New(s.cl, s.apiURL, map[string]string{
		"User-Agent":       common.UserAgent,
		"X-Requested-With": "com.showmax.app",
	})
	s.setAccessToken(s.data.Get(ServiceName, userdata.KeyAccessToken, ""))
}

func (s *Client) setAccessToken(token string) {
	if token == "" {
		return
	}
	s.sess.SetAuthToken(token)
	s.LoggedIn = true
}

// Session exposes the current session for header inspection in tests
func (s *Client) Session() *session.Session {
	return s.sess
}

// Login performs the form-based sign-in flow: harvest the hidden fields of
// the sign-in form, post credentials without following redirects, read the
// token cookie and validate it. Any rejection clears persisted identity
// before the error propagates.
func (s *Client) Login(ctx context.Context, username, password string) error {
	log.WithField("service", ServiceName).Info("login")

	params := url.Values{
		"response_type": {"token"},
		"lang":          {lang},
	}

	page, err := s.sess.Get(ctx, s.signin, params)
	if err != nil {
		return err
	}
	form, err := htmlform.Inputs(bytes.NewReader(page), signinFormID)
	if err != nil {
		return errors.Wrap(err, "parse sign-in page")
	}
	for k, v := range params {
		form[k] = v
	}
	form.Set("signin[email]", username)
	form.Set("signin[password]", password)

	resp, err := s.sess.PostForm(ctx, s.signin, nil, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	token := cookieValue(resp, oauthCookie)
	if token == "" {
		s.clearIdentity()
		return &models.AuthError{}
	}
	s.setAccessToken(token)

	var user currentUser
	if err := s.sess.GetJSON(ctx, "user/current", url.Values{"lang": {lang}}, &user); err != nil {
		return err
	}
	if len(user.ErrorCode) > 0 {
		s.clearIdentity()
		return &models.AuthError{Message: user.Message}
	}

	if err := s.persistIdentity(username, token, user.UserID.String()); err != nil {
		return err
	}
	return nil
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (s *Client) persistIdentity(username, token, userID string) error {
	for key, value := range map[string]string{
		userdata.KeyDeviceID:    common.DeviceID(username),
		userdata.KeyAccessToken: token,
		userdata.KeyUserID:      userID,
		userdata.KeyUsername:    username,
	} {
		if err := s.data.Set(ServiceName, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Client) clearIdentity() {
	for _, key := range []string{
		userdata.KeyDeviceID,
		userdata.KeyAccessToken,
		userdata.KeyUserID,
		userdata.KeyUsername,
	} {
		if err := s.data.Delete(ServiceName, key); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to clear identity key")
		}
	}
	s.NewSession()
}

// Logout clears the persisted identity record and reinitializes the session
func (s *Client) Logout() {
	log.WithField("service", ServiceName).Info("logout")
	s.clearIdentity()
}

// catalogue pages through the listing endpoint, merging caller filters
// with the fixed parameters the server contract requires. It stops when a
// page comes back short or the server reports nothing remaining; malformed
// counters are a data error, never a silent loop.
func (s *Client) catalogue(ctx context.Context, filters url.Values) ([]Asset, error) {
	var items []Asset
	start := 0

	for {
		params := url.Values{
			"field[]":             listFields,
			"lang":                {lang},
			"num":                 {fmt.Sprintf("%d", pageSize)},
			"showmax_rating":      {rating},
			"sort":                {sortOrder},
			"start":               {fmt.Sprintf("%d", start)},
			"subscription_status": {subscription},
		}
		for k, v := range filters {
			params[k] = v
		}

		var page cataloguePage
		if err := s.sess.GetJSON(ctx, "catalogue/assets", params, &page); err != nil {
			return nil, err
		}
		if page.Count == nil || page.Remaining == nil || *page.Count < 0 || *page.Remaining < 0 {
			return nil, &models.DataIntegrityError{Message: "catalogue page has malformed counters"}
		}

		items = append(items, page.Items...)
		if *page.Count < pageSize || *page.Remaining == 0 {
			break
		}
		start += pageSize
	}

	log.WithField("count", len(items)).Debug("catalogue fetched")
	return items, nil
}

func (s *Client) catalogueItems(ctx context.Context, key string, filters url.Values) ([]models.Item, error) {
	return cache.Memoize(s.cache, key, listExpiry, func() ([]models.Item, error) {
		assets, err := s.catalogue(ctx, filters)
		if err != nil {
			return nil, err
		}
		return mapItems(assets, models.Art{})
	})
}

// Shows lists all series outside the kids section
func (s *Client) Shows(ctx context.Context) ([]models.Item, error) {
	return s.catalogueItems(ctx, cache.Key("showmax.catalogue", "tv_series"), url.Values{
		"type":              {"tv_series"},
		"exclude_section[]": {sectionKids},
	})
}

// Movies lists all movies outside the kids section
func (s *Client) Movies(ctx context.Context) ([]models.Item, error) {
	return s.catalogueItems(ctx, cache.Key("showmax.catalogue", "movie"), url.Values{
		"type":              {"movie"},
		"exclude_section[]": {sectionKids},
	})
}

// Kids lists the kids section across all types
func (s *Client) Kids(ctx context.Context) ([]models.Item, error) {
	return s.catalogueItems(ctx, cache.Key("showmax.catalogue", sectionKids), url.Values{
		"section": {sectionKids},
	})
}

// Show fetches a series detail with seasons and episodes. Episode art
// inherits empty slots from the series art.
func (s *Client) Show(ctx context.Context, showID string) (*models.ShowDetail, error) {
	return cache.Memoize(s.cache, cache.Key("showmax.show", showID), detailExpiry, func() (*models.ShowDetail, error) {
		params := url.Values{
			"field[]":             detailFields,
			"lang":                {lang},
			"showmax_rating":      {rating},
			"subscription_status": {subscription},
		}

		var asset Asset
		if err := s.sess.GetJSON(ctx, "catalogue/tv_series/"+url.PathEscape(showID), params, &asset); err != nil {
			return nil, err
		}
		if asset.ID == "" {
			return nil, &models.DataIntegrityError{Message: "series detail has no id"}
		}

		art := models.SelectArt(asset.Images, models.Art{}, thumbHeight, fanartHeight)
		detail := &models.ShowDetail{
			ID:          asset.ID,
			Title:       asset.Title,
			Description: asset.Description,
			Art:         art,
		}
		for _, season := range asset.Seasons {
			episodes, err := mapItems(season.Episodes, art)
			if err != nil {
				return nil, err
			}
			detail.Seasons = append(detail.Seasons, models.Season{
				Number:   season.Number,
				Episodes: episodes,
			})
		}
		return detail, nil
	})
}

// Play resolves a video id into a stream URL and a DRM license URL via the
// two-step descriptor/verify exchange. Never cached.
func (s *Client) Play(ctx context.Context, videoID string) (*models.Playback, error) {
	params := url.Values{
		"encoding":            {encoding},
		"subscription_status": {subscription},
		"lang":                {lang},
	}

	var desc playbackDescriptor
	if err := s.sess.GetJSON(ctx, "playback/play/"+url.PathEscape(videoID), params, &desc); err != nil {
		return nil, err
	}
	if desc.URL == "" || desc.PackagingTaskID == "" || desc.SessionID == "" {
		return nil, &models.DataIntegrityError{Message: "playback descriptor is incomplete"}
	}

	form := url.Values{
		"user_id":           {s.data.Get(ServiceName, userdata.KeyUserID, "")},
		"video_id":          {videoID},
		"hw_code":           {s.data.Get(ServiceName, userdata.KeyDeviceID, "")},
		"packaging_task_id": {desc.PackagingTaskID},
		"session_id":        {desc.SessionID},
	}
	verifyParams := url.Values{
		"showmax_rating": {rating},
		"lang":           {lang},
	}

	var verify verifyResponse
	if err := s.sess.PostFormJSON(ctx, "playback/verify", verifyParams, form, &verify); err != nil {
		return nil, err
	}
	if verify.LicenseRequest == "" {
		return nil, &models.PlaybackError{Message: "verification returned no license request"}
	}

	return &models.Playback{
		StreamURL:  desc.URL,
		LicenseURL: fmt.Sprintf("%s/drm/widevine_modular?license_request=%s", s.apiURL, url.QueryEscape(verify.LicenseRequest)),
	}, nil
}

// mapItems normalizes raw assets into display records. A movie or episode
// without a main video variant is a data error: playback depends on it.
func mapItems(assets []Asset, defArt models.Art) ([]models.Item, error) {
	items := make([]models.Item, 0, len(assets))

	for _, asset := range assets {
		item := models.Item{
			ID:          asset.ID,
			Title:       asset.Title,
			Description: asset.Description,
			Type:        models.ItemType(asset.Type),
			Number:      asset.Number,
			Art:         models.SelectArt(asset.Images, defArt, thumbHeight, fanartHeight),
		}

		if item.Type.Playable() {
			main, trailer := models.SelectVideos(asset.Videos)
			if main == nil {
				return nil, &models.DataIntegrityError{
					Message: fmt.Sprintf("%s %q has no main video variant", asset.Type, asset.ID),
				}
			}
			item.VideoID = main.ID
			item.Duration = int(main.Duration)
			item.Width = main.Width
			item.Height = main.Height
			if trailer != nil {
				item.TrailerID = trailer.ID
			}
			if item.Title == "" {
				item.Title = fmt.Sprintf("Episode %d", asset.Number)
			}
		}

		items = append(items, item)
	}
	return items, nil
}
