package model

// Role is the role of a user in the site configuration.
type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// PlayRecord is the playback progress of a user for one title.
type PlayRecord struct {
	// Title of the video
	Title string `json:"title"`
	// SourceName is the display name of the video source
	SourceName string `json:"source_name"`
	// Cover is the poster URL
	Cover string `json:"cover"`
	Year  string `json:"year"`
	// Index is the episode being played, starting at 1
	Index         int `json:"index"`
	TotalEpisodes int `json:"total_episodes"`
	// PlayTime is the playback position in seconds
	PlayTime int `json:"play_time"`
	// TotalTime is the duration of the episode in seconds
	TotalTime int `json:"total_time"`
	// SaveTime is the time of the checkpoint in milliseconds since epoch
	SaveTime    int64  `json:"save_time"`
	SearchTitle string `json:"search_title"`
}

// Favorite marks a title as favorite of a user.
type Favorite struct {
	SourceName    string `json:"source_name"`
	TotalEpisodes int    `json:"total_episodes"`
	Title         string `json:"title"`
	Year          string `json:"year"`
	Cover         string `json:"cover"`
	// SaveTime is the time the favorite was added in milliseconds since epoch
	SaveTime    int64  `json:"save_time"`
	SearchTitle string `json:"search_title"`
	Origin      string `json:"origin,omitempty"`
}

// SkipConfig holds the intro and outro markers of a title.
type SkipConfig struct {
	Enable bool `json:"enable"`
	// IntroTime in seconds, playback starts here
	IntroTime int `json:"intro_time"`
	// OutroTime in seconds before the end, playback skips to next episode here
	OutroTime int `json:"outro_time"`
}

// AdminConfig is the site wide configuration.
type AdminConfig struct {
	// ConfigFile is the raw text of the uploaded configuration file
	ConfigFile       string           `json:"ConfigFile"`
	SiteConfig       SiteConfig       `json:"SiteConfig"`
	UserConfig       UserConfig       `json:"UserConfig"`
	SourceConfig     []VideoSource    `json:"SourceConfig"`
	CustomCategories []CustomCategory `json:"CustomCategories"`
	LiveConfig       []LiveSource     `json:"LiveConfig"`
}

type SiteConfig struct {
	SiteName                string `json:"SiteName"`
	Announcement            string `json:"Announcement"`
	SearchDownstreamMaxPage int    `json:"SearchDownstreamMaxPage"`
	SiteInterfaceCacheTime  int    `json:"SiteInterfaceCacheTime"`
	DoubanProxyType         string `json:"DoubanProxyType"`
	DoubanProxy             string `json:"DoubanProxy"`
	DoubanImageProxyType    string `json:"DoubanImageProxyType"`
	DoubanImageProxy        string `json:"DoubanImageProxy"`
	DisableYellowFilter     bool   `json:"DisableYellowFilter"`
	FluidSearch             bool   `json:"FluidSearch"`
}

type UserConfig struct {
	AllowRegister bool        `json:"AllowRegister"`
	Users         []UserEntry `json:"Users"`
}

// UserEntry is a user as listed in the site configuration.
type UserEntry struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Banned   bool   `json:"banned,omitempty"`
}

// VideoSource is a video search/detail API.
type VideoSource struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	API    string `json:"api"`
	Detail string `json:"detail,omitempty"`
	// From is "config" for sources from the config file, "custom" otherwise
	From     string `json:"from"`
	Disabled bool   `json:"disabled,omitempty"`
}

// CustomCategory is a category shown on the home page.
type CustomCategory struct {
	Name string `json:"name,omitempty"`
	// Type is "movie" or "tv"
	Type     string `json:"type"`
	Query    string `json:"query"`
	From     string `json:"from"`
	Disabled bool   `json:"disabled,omitempty"`
}

// LiveSource is a live tv playlist.
type LiveSource struct {
	Key           string `json:"key"`
	Name          string `json:"name"`
	URL           string `json:"url"`
	UA            string `json:"ua,omitempty"`
	EPG           string `json:"epg,omitempty"`
	From          string `json:"from"`
	ChannelNumber int    `json:"channelNumber,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
}
