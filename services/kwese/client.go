package kwese

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/session"
	"github.com/vodkit/vodkit/services/userdata"
)

const ServiceName = "kwese"

const apiURLFlag = "kwese-api-url"

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   apiURLFlag,
			Usage:  "kwese api base url",
			Value:  "https://api.kwese.com/v2",
			EnvVar: "KWESE_API_URL",
		},
	)
}

const (
	// assetTypeStream tags the media-content entries that are direct
	// stream sources; drmMarker shows up in resolved URLs this device
	// class cannot decrypt.
	assetTypeStream = "STREAM"
	drmMarker       = "faxs"

	deviceIPPlaceholder = "127.0.0.1"

	channelsExpiry = time.Hour
)

// Client is the Kwesé live-channel client
type Client struct {
	cl     *http.Client
	data   *userdata.Store
	cache  *cache.Cache
	apiURL string

	sess     *session.Session
	LoggedIn bool
}

func New(c *cli.Context, cl *http.Client, data *userdata.Store, ch *cache.Cache) *Client {
	return NewWith(cl, c.String(apiURLFlag), data, ch)
}

func NewWith(cl *http.Client, apiURL string, data *userdata.Store, ch *cache.Cache) *Client {
	s := &Client{
		cl:     cl,
		data:   data,
		cache:  ch,
		apiURL: strings.TrimSuffix(apiURL, "/"),
	}
	s.NewSession()
	return s
}

// NewSession discards any existing session and restores a persisted token
// if present
func (s *Client) NewSession() {
	s.LoggedIn = false
	s.sess = session.New(s.cl, s.apiURL, map[string]string{
		"User-Agent": common.UserAgent,
	})
	if token := s.data.Get(ServiceName, userdata.KeyAccessToken, ""); token != "" {
		s.sess.SetAuthToken(token)
		s.LoggedIn = true
	}
}

// Session exposes the current session for header inspection in tests
func (s *Client) Session() *session.Session {
	return s.sess
}

// Login authenticates against the JSON auth endpoint, binding the session
// to a device id derived from the username. A missing token in the reply
// clears persisted identity and fails with the server's message.
func (s *Client) Login(ctx context.Context, username, password string) error {
	log.WithField("service", ServiceName).Info("login")

	deviceID := common.DeviceID(username)
	var resp loginResponse
	err := s.sess.PostJSON(ctx, "auth/login", nil, loginRequest{
		DeviceID: deviceID,
		DeviceIP: deviceIPPlaceholder,
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		s.clearIdentity()
		return &models.AuthError{Message: resp.Message}
	}

	for key, value := range map[string]string{
		userdata.KeyDeviceID:    deviceID,
		userdata.KeyAccessToken: resp.Token,
		userdata.KeyUsername:    username,
	} {
		if err := s.data.Set(ServiceName, key, value); err != nil {
			return err
		}
	}
	s.sess.SetAuthToken(resp.Token)
	s.LoggedIn = true
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

// Channels fetches the channel directory. Each channel resolves to the
// first media-content entry tagged as a stream source; channels without
// one keep an empty URL and are unplayable downstream. Channels on the
// persisted hidden list are dropped unless includeHidden is set.
func (s *Client) Channels(ctx context.Context, includeHidden bool) ([]models.Channel, error) {
	channels, err := cache.Memoize(s.cache, cache.Key("kwese.channels"), channelsExpiry, func() ([]models.Channel, error) {
		var list channelList
		if err := s.sess.GetJSON(ctx, "channels", nil, &list); err != nil {
			return nil, err
		}
		out := make([]models.Channel, 0, len(list.Channels))
		for _, ch := range list.Channels {
			out = append(out, models.Channel{
				ID:          ch.ID,
				Name:        ch.Name,
				Description: ch.Description,
				Logo:        ch.Logo,
				StreamURL:   streamURL(ch.MediaContents),
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if includeHidden {
		return channels, nil
	}

	hidden := s.hiddenSet()
	visible := channels[:0:0]
	for _, ch := range channels {
		if !hidden[ch.ID] {
			visible = append(visible, ch)
		}
	}
	return visible, nil
}

// Channel returns a single directory entry by id
func (s *Client) Channel(ctx context.Context, id string) (*models.Channel, error) {
	channels, err := s.Channels(ctx, true)
	if err != nil {
		return nil, err
	}
	for i := range channels {
		if channels[i].ID == id {
			return &channels[i], nil
		}
	}
	return nil, errors.Errorf("channel %q not found", id)
}

func streamURL(contents []MediaContent) string {
	for _, mc := range contents {
		for _, at := range mc.AssetTypes {
			if at == assetTypeStream {
				return mc.URL
			}
		}
	}
	return ""
}

// ResolveURL exchanges a channel's base stream URL for the final playable
// one: fetch a signing token for this device/profile, append it and follow
// the signed URL manually to capture the redirect target. ErrNoStream and
// ErrUnsupportedDRM are distinct outcomes so the caller can offer to hide
// the channel.
func (s *Client) ResolveURL(ctx context.Context, channelURL string) (string, error) {
	if channelURL == "" {
		return "", models.ErrNoStream
	}

	params := url.Values{
		"deviceId":  {s.data.Get(ServiceName, userdata.KeyDeviceID, "")},
		"profileId": {s.profileID()},
	}
	var tok tokenResponse
	if err := s.sess.GetJSON(ctx, "token", params, &tok); err != nil {
		return "", err
	}
	if tok.Token == "" {
		return "", &models.PlaybackError{Message: tok.Message}
	}

	signed, err := url.Parse(channelURL)
	if err != nil {
		return "", errors.Wrap(err, "parse channel url")
	}
	q := signed.Query()
	q.Set("token", tok.Token)
	signed.RawQuery = q.Encode()

	resp, err := s.sess.GetNoRedirect(ctx, signed.String(), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", models.ErrNoStream
	}
	if strings.Contains(location, drmMarker) {
		return "", models.ErrUnsupportedDRM
	}
	return location, nil
}

// profileID returns the persisted per-install profile identifier,
// generating one on first use
func (s *Client) profileID() string {
	if id := s.data.Get(ServiceName, userdata.KeyProfileID, ""); id != "" {
		return id
	}
	id := uuid.NewString()
	if err := s.data.Set(ServiceName, userdata.KeyProfileID, id); err != nil {
		log.WithError(err).Warn("failed to persist profile id")
	}
	return id
}

func (s *Client) hiddenSet() map[string]bool {
	hidden := map[string]bool{}
	for _, id := range s.data.GetList(ServiceName, userdata.KeyHidden) {
		hidden[id] = true
	}
	return hidden
}

// Hide adds a channel to the persisted hidden list
func (s *Client) Hide(id string) error {
	hidden := s.data.GetList(ServiceName, userdata.KeyHidden)
	for _, h := range hidden {
		if h == id {
			return nil
		}
	}
	return s.data.SetList(ServiceName, userdata.KeyHidden, append(hidden, id))
}

// Unhide removes a channel from the persisted hidden list
func (s *Client) Unhide(id string) error {
	hidden := s.data.GetList(ServiceName, userdata.KeyHidden)
	out := hidden[:0]
	for _, h := range hidden {
		if h != id {
			out = append(out, h)
		}
	}
	return s.data.SetList(ServiceName, userdata.KeyHidden, out)
}
