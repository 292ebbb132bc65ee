package mangadexapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
)

// Credentials are the inputs of a password grant.
type Credentials struct {
	Username     string
	Password     string
	ClientID     string
	ClientSecret string
}

func (c Credentials) missing() []string {
	var fields []string
	for _, f := range []struct{ name, value string }{
		{KeyUsername, c.Username},
		{KeyPassword, c.Password},
		{KeyClientID, c.ClientID},
		{KeyClientSecret, c.ClientSecret},
	} {
		if f.value == "" {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// Token represents an authentication token pair.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ReadingStatus for user manga reading status
type ReadingStatus string

const (
	ReadingStatusReading    ReadingStatus = "reading"
	ReadingStatusOnHold     ReadingStatus = "on_hold"
	ReadingStatusPlanToRead ReadingStatus = "plan_to_read"
	ReadingStatusDropped    ReadingStatus = "dropped"
	ReadingStatusReReading  ReadingStatus = "re_reading"
	ReadingStatusCompleted  ReadingStatus = "completed"
)

// ReadingStatuses lists every status in display order.
var ReadingStatuses = []ReadingStatus{
	ReadingStatusReading,
	ReadingStatusReReading,
	ReadingStatusOnHold,
	ReadingStatusPlanToRead,
	ReadingStatusDropped,
	ReadingStatusCompleted,
}

var reStatusLabel = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ParseReadingStatus accepts any well-formed status label, including ones
// missing from ReadingStatuses.
func ParseReadingStatus(s string) (ReadingStatus, error) {
	if !reStatusLabel.MatchString(s) {
		return "", fmt.Errorf("%w: malformed reading status %q", ErrInvalidRequest, s)
	}
	return ReadingStatus(s), nil
}

// ReadingStatusMap groups manga IDs by the user's reading status.
type ReadingStatusMap map[ReadingStatus][]string

// Statuses returns the known statuses in display order followed by any other
// status present in m, sorted.
func (m ReadingStatusMap) Statuses() []ReadingStatus {
	out := slices.Clone(ReadingStatuses)
	var extra []ReadingStatus
	for st := range m {
		if !slices.Contains(ReadingStatuses, st) {
			extra = append(extra, st)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// ReadMarkers maps a manga ID to the chapter IDs the user marked as read.
type ReadMarkers map[string][]string

// UnmarshalJSON accepts the empty array the API sends instead of an empty object.
func (r *ReadMarkers) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var ids []string
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		if len(ids) > 0 {
			return fmt.Errorf("ungrouped read markers: %d chapter ids without manga", len(ids))
		}
		*r = ReadMarkers{}
		return nil
	}

	var m map[string][]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = m
	return nil
}

// Manga represents a manga object from the MangaDex API.
type Manga struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Attributes    MangaAttributes `json:"attributes"`
	Relationships []Relationship  `json:"relationships"`
}

// MangaAttributes represents the attributes of a manga.
type MangaAttributes struct {
	Title                        map[string]string   `json:"title"`
	AltTitles                    []map[string]string `json:"altTitles"`
	Description                  map[string]string   `json:"description"`
	OriginalLanguage             string              `json:"originalLanguage"`
	LastVolume                   string              `json:"lastVolume"`
	LastChapter                  string              `json:"lastChapter"`
	PublicationDemographic       string              `json:"publicationDemographic"`
	Status                       string              `json:"status"`
	Year                         int                 `json:"year"`
	ContentRating                string              `json:"contentRating"`
	AvailableTranslatedLanguages []string            `json:"availableTranslatedLanguages"`
	LatestUploadedChapter        string              `json:"latestUploadedChapter"`
	State                        string              `json:"state"`
	CreatedAt                    string              `json:"createdAt"`
	UpdatedAt                    string              `json:"updatedAt"`
}

// Relationship represents a relationship object from the MangaDex API.
type Relationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Related    string         `json:"related,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CoverFileName returns the file name of the included cover_art relationship, if any.
func (m Manga) CoverFileName() string {
	for _, rel := range m.Relationships {
		if rel.Type != "cover_art" {
			continue
		}
		if name, ok := rel.Attributes["fileName"].(string); ok {
			return name
		}
	}
	return ""
}

// Chapter is a single entry of a manga feed.
type Chapter struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Attributes    ChapterAttributes `json:"attributes"`
	Relationships []Relationship    `json:"relationships"`
}

type ChapterAttributes struct {
	Volume             string `json:"volume"`
	Chapter            string `json:"chapter"`
	Title              string `json:"title"`
	TranslatedLanguage string `json:"translatedLanguage"`
	ExternalURL        string `json:"externalUrl"`
	Pages              int    `json:"pages"`
	PublishAt          string `json:"publishAt"`
	ReadableAt         string `json:"readableAt"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

// Aggregate is the volume/chapter tree of a manga. It lists every known
// upload, with duplicate uploads of one chapter folded into Others.
type Aggregate struct {
	Volumes labelled[AggregateVolume] `json:"volumes"`
}

type AggregateVolume struct {
	Volume   string                     `json:"volume"`
	Count    int                        `json:"count"`
	Chapters labelled[AggregateChapter] `json:"chapters"`
}

func (v AggregateVolume) label() string { return v.Volume }

type AggregateChapter struct {
	Chapter string   `json:"chapter"`
	ID      string   `json:"id"`
	Others  []string `json:"others"`
	Count   int      `json:"count"`
}

func (c AggregateChapter) label() string { return c.Chapter }

// ids returns the chapter ID followed by its alternates.
func (c AggregateChapter) ids() []string {
	return append([]string{c.ID}, c.Others...)
}

// labelled is a JSON object keyed by label. The API encodes it as an array
// when it is empty or when its keys happen to be "0", "1", ...
type labelled[T interface{ label() string }] map[string]T

func (l *labelled[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		var m map[string]T
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		*l = m
		return nil
	}

	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	m := make(map[string]T, len(items))
	for i, item := range items {
		key := item.label()
		if _, dup := m[key]; dup || key == "" {
			key = strconv.Itoa(i)
		}
		m[key] = item
	}
	*l = m
	return nil
}

// Page is one response of an offset/limit paginated endpoint.
type Page[T any] struct {
	Items  []T
	Offset int
	Limit  int
	Total  int
}

// MangaCard is a manga with the user's read progress.
type MangaCard struct {
	Manga
	Read  int `json:"read"`
	Total int `json:"total"`
}

// CardPage is a page over a caller-supplied list of manga IDs. Total is the
// length of that list, not the number of cards in Data.
type CardPage struct {
	Total  int         `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Data   []MangaCard `json:"data"`
}

type envelope struct {
	Result string `json:"result"`
}

type statusResponse struct {
	envelope
	Statuses map[string]ReadingStatus `json:"statuses"`
}

type mangaListResponse struct {
	envelope
	Data   []Manga `json:"data"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Total  int     `json:"total"`
}

type chapterListResponse struct {
	envelope
	Data   []Chapter `json:"data"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Total  int       `json:"total"`
}

type aggregateResponse struct {
	envelope
	Aggregate
}

type readMarkersResponse struct {
	envelope
	Data ReadMarkers `json:"data"`
}
