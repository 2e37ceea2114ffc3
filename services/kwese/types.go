package kwese

type loginRequest struct {
	DeviceID string `json:"deviceId"`
	DeviceIP string `json:"deviceIP"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// tokenResponse is the signing-token exchange result
type tokenResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// ChannelEntry is a raw channel directory record
type ChannelEntry struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Logo          string         `json:"logo"`
	MediaContents []MediaContent `json:"mediaContents"`
}

// MediaContent is one stream source of a channel. A channel may list
// several sources with different asset-type tags; only tagged stream
// sources are playable here.
type MediaContent struct {
	URL        string   `json:"channelUrl"`
	AssetTypes []string `json:"assetTypes"`
}

type channelList struct {
	Channels []ChannelEntry `json:"channels"`
}
