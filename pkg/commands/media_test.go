package commands

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

const twoUpsSearch = `{"MediaContainer":{"SearchResult":[
	{"score":0.9,"Metadata":{"ratingKey":"101","title":"Up","type":"movie","year":2009,"librarySectionID":1}},
	{"score":0.8,"Metadata":{"ratingKey":"202","title":"Up","type":"movie","year":2022,"librarySectionID":1}},
	{"score":0.4,"Metadata":{"ratingKey":"303","title":"Up in the Air","type":"movie","year":2009,"librarySectionID":1}}
]}}`

func TestMediaGetDetails_AmbiguousTitle(t *testing.T) {
	h := newHarness(t, map[string]string{"GET /library/search": twoUpsSearch})

	resp := h.call("media_get_details", map[string]any{"media_title": "Up"})
	want := `[{"title":"Up","id":101,"type":"movie","year":2009},{"title":"Up","id":202,"type":"movie","year":2022}]`
	if got := resp.JSON(); got != want {
		t.Errorf("commands:media_test - got %s, want %s", got, want)
	}
}

func TestMediaGetDetails_ByID(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/metadata/101": `{"MediaContainer":{"Metadata":[{
			"ratingKey":"101","title":"Up","type":"movie","year":2009,"studio":"Pixar",
			"librarySectionTitle":"Movies","Genre":[{"tag":"Animation"}],
			"Media":[{"videoResolution":"1080","videoCodec":"h264","Part":[{"file":"/movies/Up.mkv","size":1024,"container":"mkv"}]}]
		}]}}`,
	})

	fields := expectSuccess(t, h.call("media_get_details", map[string]any{"media_id": 101}))
	media, ok := fields["media"].(map[string]any)
	if !ok {
		t.Fatalf("commands:media_test - media = %T", fields["media"])
	}
	if media["title"] != "Up" || media["studio"] != "Pixar" || media["library"] != "Movies" {
		t.Errorf("commands:media_test - media = %v", media)
	}
	files, _ := media["media_files"].([]map[string]any)
	if len(files) != 1 || files[0]["file"] != "/movies/Up.mkv" || files[0]["video_resolution"] != "1080" {
		t.Errorf("commands:media_test - media_files = %v", media["media_files"])
	}
}

func TestMediaGetDetails_Errors(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/sections": `{"MediaContainer":{"Directory":[{"key":"1","title":"Movies","type":"movie"}]}}`,
		"GET /library/search":   `{"MediaContainer":{"SearchResult":[]}}`,
	})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "no selector", args: map[string]any{}, want: "Either media_id or media_title must be provided"},
		{name: "unknown id", args: map[string]any{"media_id": 7}, want: "Media with ID '7' not found"},
		{name: "unknown library", args: map[string]any{"media_title": "Up", "library_name": "Anime"}, want: "Library 'Anime' not found"},
		{name: "no match", args: map[string]any{"media_title": "Nope"}, want: "No media found matching 'Nope'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, h.call("media_get_details", tt.args), tt.want)
		})
	}
}

func TestMediaSearch_GroupsByType(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/search": `{"MediaContainer":{"SearchResult":[
			{"score":0.9,"Metadata":{"ratingKey":"1","title":"Up","type":"movie","year":2009}},
			{"score":0.8,"Metadata":{"ratingKey":"2","title":"Up","type":"track","grandparentTitle":"Peter Gabriel","parentTitle":"Up"}},
			{"score":0.7,"Metadata":{"ratingKey":"3","title":"Up","type":"album","parentTitle":"Peter Gabriel"}}
		]}}`,
	})

	fields := expectSuccess(t, h.call("media_search", map[string]any{"query": "Up", "content_type": "movie"}))
	if fields["message"] != "Found 3 results for 'Up'" || fields["count"] != 3 {
		t.Errorf("commands:media_test - fields = %v", fields)
	}
	groups, _ := fields["results"].([]map[string]any)
	order := make([]string, 0, len(groups))
	for _, g := range groups {
		order = append(order, g["type"].(string))
	}
	if len(order) != 3 || order[0] != "track" || order[1] != "album" || order[2] != "movie" {
		t.Errorf("commands:media_test - group order = %v", order)
	}
	q := h.fake.mustFind(http.MethodGet, "/library/search").URL.Query()
	if q.Get("searchTypes") != "movies" || q.Get("limit") != "50" {
		t.Errorf("commands:media_test - query = %v", q)
	}
}

func TestMediaSearch_NoResults(t *testing.T) {
	h := newHarness(t, map[string]string{"GET /library/search": `{"MediaContainer":{"size":0}}`})

	fields := expectSuccess(t, h.call("media_search", map[string]any{"query": "zzz"}))
	if fields["message"] != "No results found for 'zzz'." || fields["count"] != 0 {
		t.Errorf("commands:media_test - fields = %v", fields)
	}
}

func TestMediaEditMetadata(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/metadata/101": `{"MediaContainer":{"Metadata":[{"ratingKey":"101","title":"Up","type":"movie","librarySectionID":"1",
			"Genre":[{"tag":"Animation"},{"tag":"Family"}]}]}}`,
		"PUT /library/sections/1/all": ``,
	})

	fields := expectSuccess(t, h.call("media_edit_metadata", map[string]any{
		"media_id":      101,
		"new_year":      2009,
		"new_rating":    8.5,
		"remove_genres": []any{"Family"},
		"add_labels":    "4K",
	}))
	changes, _ := fields["changes"].([]string)
	if len(changes) != 4 {
		t.Errorf("commands:media_test - changes = %v", fields["changes"])
	}

	q := h.fake.mustFind(http.MethodPut, "/library/sections/1/all").URL.Query()
	checks := map[string]string{
		"type":             "1",
		"id":               "101",
		"year.value":       "2009",
		"rating.value":     "8.5",
		"genre[].tag.tag-": "Family",
		"label[0].tag.tag": "4K",
	}
	for k, v := range checks {
		if q.Get(k) != v {
			t.Errorf("commands:media_test - %s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestMediaEditMetadata_NoChanges(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/metadata/101": `{"MediaContainer":{"Metadata":[{"ratingKey":"101","title":"Up","type":"movie","librarySectionID":1,
			"Genre":[{"tag":"Animation"}]}]}}`,
	})

	// Adding a genre the item already has is not a change.
	fields := expectSuccess(t, h.call("media_edit_metadata", map[string]any{"media_id": 101, "add_genres": "animation"}))
	if fields["message"] != "No changes made to the media item" {
		t.Errorf("commands:media_test - fields = %v", fields)
	}
	if len(h.fake.find(http.MethodPut, "/library/sections/1/all")) != 0 {
		t.Error("commands:media_test - no edit should reach Plex")
	}
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{B: 255, A: 255}), imaging.PNG); err != nil {
		t.Fatalf("commands:media_test - encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestMediaGetArtwork(t *testing.T) {
	png := testPNG(t, 300, 450)
	h := newHarness(t, map[string]string{
		"GET /library/metadata/101": `{"MediaContainer":{"Metadata":[{"ratingKey":"101","title":"Up","type":"movie",
			"thumb":"/library/metadata/101/thumb/1700000000","art":""}]}}`,
		"GET /library/metadata/101/thumb/1700000000": string(png),
	})

	fields := expectSuccess(t, h.call("media_get_artwork", map[string]any{"media_id": 101}))
	data, err := base64.StdEncoding.DecodeString(fields["data"].(string))
	if err != nil || !bytes.Equal(data, png) {
		t.Errorf("commands:media_test - data mismatch (err %v)", err)
	}
	if fields["width"] != 300 || fields["height"] != 450 || fields["content_type"] != "image/png" {
		t.Errorf("commands:media_test - fields = %v", fields)
	}

	fields = expectSuccess(t, h.call("media_get_artwork", map[string]any{"media_id": 101, "max_size": 150}))
	if fields["width"] != 100 || fields["height"] != 150 || fields["content_type"] != "image/jpeg" {
		t.Errorf("commands:media_test - scaled fields = %v", fields)
	}

	out := filepath.Join(t.TempDir(), "poster.png")
	fields = expectSuccess(t, h.call("media_get_artwork", map[string]any{"media_id": 101, "save_to_file": true, "output_path": out}))
	if fields["path"] != out {
		t.Errorf("commands:media_test - path = %v", fields["path"])
	}
	if written, err := os.ReadFile(out); err != nil || !bytes.Equal(written, png) {
		t.Errorf("commands:media_test - saved file mismatch (err %v)", err)
	}

	expectError(t, h.call("media_get_artwork", map[string]any{"media_id": 101, "art_type": "background"}), "No art available for 'Up'")
	expectError(t, h.call("media_get_artwork", map[string]any{"media_id": 101, "art_type": "banner"}), "art_type must be 'poster', 'art', or 'background'")
}

func TestMediaSetArtwork(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/metadata/101":          `{"MediaContainer":{"Metadata":[{"ratingKey":"101","title":"Up","type":"movie"}]}}`,
		"POST /library/metadata/101/posters": ``,
		"POST /library/metadata/101/arts":    ``,
	})

	file := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(file, testPNG(t, 64, 36), 0o644); err != nil {
		t.Fatalf("commands:media_test - write failed: %v", err)
	}
	fields := expectSuccess(t, h.call("media_set_artwork", map[string]any{
		"media_id":        101,
		"poster_url":      "https://images.example/up.jpg",
		"background_path": file,
	}))
	changes, _ := fields["changes"].([]string)
	if len(changes) != 2 || changes[0] != "poster (from URL)" || changes[1] != "background (from file)" {
		t.Errorf("commands:media_test - changes = %v", fields["changes"])
	}
	if got := h.fake.mustFind(http.MethodPost, "/library/metadata/101/posters").URL.Query().Get("url"); got != "https://images.example/up.jpg" {
		t.Errorf("commands:media_test - poster url = %q", got)
	}

	expectError(t, h.call("media_set_artwork", map[string]any{"media_id": 101}),
		"At least one of poster_path, poster_url, background_path or background_url must be provided")
}

func TestMediaDelete(t *testing.T) {
	h := newHarness(t, map[string]string{
		"GET /library/search":          twoUpsSearch,
		"DELETE /library/metadata/303": ``,
	})

	fields := expectSuccess(t, h.call("media_delete", map[string]any{"media_title": "up in the air"}))
	if fields["message"] != "Successfully deleted 'Up in the Air' (movie)" || fields["id"] != 303 {
		t.Errorf("commands:media_test - fields = %v", fields)
	}

	// Ambiguous titles never delete anything.
	resp := h.call("media_delete", map[string]any{"media_title": "Up"})
	if len(resp.Matches()) != 2 {
		t.Errorf("commands:media_test - expected candidates, got %s", resp.JSON())
	}
	if n := len(h.fake.find(http.MethodDelete, "/library/metadata/101")); n != 0 {
		t.Errorf("commands:media_test - ambiguous delete reached Plex %d times", n)
	}
}
