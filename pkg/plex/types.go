package plex

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/morezero/plex-mcp-server/pkg/response"
)

// Metadata type numbers used by filter and edit endpoints.
const (
	TypeMovie      = 1
	TypeShow       = 2
	TypeSeason     = 3
	TypeEpisode    = 4
	TypeArtist     = 8
	TypeAlbum      = 9
	TypeTrack      = 10
	TypePhoto      = 13
	TypeCollection = 18
)

var typeNumbers = map[string]int{
	"movie":      TypeMovie,
	"show":       TypeShow,
	"season":     TypeSeason,
	"episode":    TypeEpisode,
	"artist":     TypeArtist,
	"album":      TypeAlbum,
	"track":      TypeTrack,
	"photo":      TypePhoto,
	"collection": TypeCollection,
}

// TypeNumber returns the numeric type for a metadata type name, or 0.
func TypeNumber(name string) int {
	return typeNumbers[strings.ToLower(name)]
}

// FlexInt decodes numbers that Plex sometimes sends as JSON strings.
type FlexInt int

// UnmarshalJSON accepts 12, "12" and "".
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// MediaContainer is the root object of every Plex JSON response.
type MediaContainer struct {
	Size                          int            `json:"size"`
	TotalSize                     int            `json:"totalSize"`
	Offset                        int            `json:"offset"`
	Title1                        string         `json:"title1"`
	FriendlyName                  string         `json:"friendlyName"`
	MachineIdentifier             string         `json:"machineIdentifier"`
	Version                       string         `json:"version"`
	Platform                      string         `json:"platform"`
	PlatformVersion               string         `json:"platformVersion"`
	Claimed                       bool           `json:"claimed"`
	MyPlex                        bool           `json:"myPlex"`
	MyPlexUsername                string         `json:"myPlexUsername"`
	MyPlexSubscription            bool           `json:"myPlexSubscription"`
	TranscoderActiveVideoSessions int            `json:"transcoderActiveVideoSessions"`
	UpdatedAt                     int64          `json:"updatedAt"`
	Directory                     []Directory    `json:"Directory"`
	Metadata                      []Metadata     `json:"Metadata"`
	SearchResult                  []SearchResult `json:"SearchResult"`
	Account                       []Account      `json:"Account"`
}

type containerEnvelope struct {
	MediaContainer MediaContainer `json:"MediaContainer"`
}

// Directory is a library section.
type Directory struct {
	Key        string     `json:"key"`
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	Agent      string     `json:"agent"`
	Scanner    string     `json:"scanner"`
	Language   string     `json:"language"`
	UUID       string     `json:"uuid"`
	Refreshing bool       `json:"refreshing"`
	UpdatedAt  int64      `json:"updatedAt"`
	ScannedAt  int64      `json:"scannedAt"`
	Location   []Location `json:"Location"`
}

// Location is a filesystem root of a library section.
type Location struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// SearchResult wraps one hit of /library/search.
type SearchResult struct {
	Score    float64  `json:"score"`
	Metadata Metadata `json:"Metadata"`
}

// Tag is a genre, label, director, writer, role, country or similar tag.
type Tag struct {
	ID    FlexInt `json:"id"`
	Tag   string  `json:"tag"`
	Role  string  `json:"role,omitempty"`
	Thumb string  `json:"thumb,omitempty"`
}

// Part is a file backing a Media entry.
type Part struct {
	ID        int    `json:"id"`
	File      string `json:"file"`
	Size      int64  `json:"size"`
	Duration  int    `json:"duration"`
	Container string `json:"container"`
}

// Media is one version of an item.
type Media struct {
	ID              int     `json:"id"`
	Duration        int     `json:"duration"`
	Bitrate         int     `json:"bitrate"`
	Container       string  `json:"container"`
	VideoCodec      string  `json:"videoCodec"`
	VideoResolution string  `json:"videoResolution"`
	VideoFrameRate  string  `json:"videoFrameRate"`
	AspectRatio     float64 `json:"aspectRatio"`
	AudioCodec      string  `json:"audioCodec"`
	AudioChannels   int     `json:"audioChannels"`
	Part            []Part  `json:"Part"`
}

// User identifies the account behind a session.
type User struct {
	ID    FlexInt `json:"id"`
	Title string  `json:"title"`
	Thumb string  `json:"thumb"`
}

// Player describes the client playing a session.
type Player struct {
	Title    string `json:"title"`
	Platform string `json:"platform"`
	Product  string `json:"product"`
	State    string `json:"state"`
	Address  string `json:"address"`
	Local    bool   `json:"local"`
}

// Session carries per-stream session details.
type Session struct {
	ID        string `json:"id"`
	Bandwidth int    `json:"bandwidth"`
	Location  string `json:"location"`
}

// TranscodeSession is present when a stream is being transcoded.
type TranscodeSession struct {
	Progress      float64 `json:"progress"`
	VideoDecision string  `json:"videoDecision"`
	AudioDecision string  `json:"audioDecision"`
}

// Metadata is any library item: movie, show, episode, track, playlist,
// collection, artwork candidate or history entry.
type Metadata struct {
	RatingKey           string  `json:"ratingKey"`
	Key                 string  `json:"key"`
	GUID                string  `json:"guid"`
	Type                string  `json:"type"`
	Subtype             string  `json:"subtype"`
	Title               string  `json:"title"`
	TitleSort           string  `json:"titleSort"`
	OriginalTitle       string  `json:"originalTitle"`
	Summary             string  `json:"summary"`
	Tagline             string  `json:"tagline"`
	Studio              string  `json:"studio"`
	ContentRating       string  `json:"contentRating"`
	Year                int     `json:"year"`
	Rating              float64 `json:"rating"`
	AudienceRating      float64 `json:"audienceRating"`
	UserRating          float64 `json:"userRating"`
	Duration            int     `json:"duration"`
	Index               int     `json:"index"`
	ParentIndex         int     `json:"parentIndex"`
	ParentTitle         string  `json:"parentTitle"`
	ParentYear          int     `json:"parentYear"`
	ParentRatingKey     string  `json:"parentRatingKey"`
	GrandparentTitle    string  `json:"grandparentTitle"`
	LibrarySectionID    FlexInt `json:"librarySectionID"`
	LibrarySectionTitle string  `json:"librarySectionTitle"`
	AddedAt             int64   `json:"addedAt"`
	UpdatedAt           int64   `json:"updatedAt"`
	LastViewedAt        int64   `json:"lastViewedAt"`
	ViewedAt            int64   `json:"viewedAt"`
	ViewCount           int     `json:"viewCount"`
	SkipCount           int     `json:"skipCount"`
	ViewOffset          int     `json:"viewOffset"`
	LeafCount           int     `json:"leafCount"`
	ViewedLeafCount     int     `json:"viewedLeafCount"`
	ChildCount          FlexInt `json:"childCount"`
	AccountID           int     `json:"accountID"`
	Thumb               string  `json:"thumb"`
	Art                 string  `json:"art"`
	ParentThumb         string  `json:"parentThumb"`
	GrandparentThumb    string  `json:"grandparentThumb"`

	// Playlist fields.
	PlaylistType   string `json:"playlistType"`
	Smart          bool   `json:"smart"`
	PlaylistItemID int    `json:"playlistItemID"`

	// Artwork candidate fields.
	Selected bool   `json:"selected"`
	Provider string `json:"provider"`

	Genre      []Tag `json:"Genre"`
	Label      []Tag `json:"Label"`
	Director   []Tag `json:"Director"`
	Writer     []Tag `json:"Writer"`
	Role       []Tag `json:"Role"`
	Country    []Tag `json:"Country"`
	Collection []Tag `json:"Collection"`
	Similar    []Tag `json:"Similar"`

	Media            []Media           `json:"Media"`
	User             *User             `json:"User"`
	Player           *Player           `json:"Player"`
	Session          *Session          `json:"Session"`
	TranscodeSession *TranscodeSession `json:"TranscodeSession"`
}

// ID returns the numeric rating key, or 0 when it is not numeric.
func (m Metadata) ID() int {
	id, _ := strconv.Atoi(m.RatingKey)
	return id
}

// Identity reduces the item to its ambiguity record.
func (m Metadata) Identity() response.Match {
	return response.Match{Title: m.Title, ID: m.ID(), Type: m.Type, Year: m.Year}
}

// Tags returns the tag strings of a tag list.
func Tags(tags []Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.Tag)
	}
	return out
}

// Account is a server-local account entry (/accounts).
type Account struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Identity is the /identity payload used to verify a connection.
type Identity struct {
	MachineIdentifier string `json:"machineIdentifier"`
	Version           string `json:"version"`
	Claimed           bool   `json:"claimed"`
}

// TVUser is a plex.tv account (owner or friend).
type TVUser struct {
	ID         int    `json:"id"`
	UUID       string `json:"uuid"`
	Username   string `json:"username"`
	Title      string `json:"title"`
	Email      string `json:"email"`
	Thumb      string `json:"thumb"`
	Home       bool   `json:"home"`
	Restricted bool   `json:"restricted"`
	Status     string `json:"status"`
}

// DisplayName returns the username, falling back to the title.
func (u TVUser) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Title
}

func decodeContainer(data []byte) (*MediaContainer, error) {
	var env containerEnvelope
	if len(data) == 0 {
		return &env.MediaContainer, nil
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env.MediaContainer, nil
}
