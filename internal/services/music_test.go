package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	tu "github.com/desertthunder/mediadesk/internal/testing"
)

func sampleTrack() models.Track {
	return models.Track{
		Title:        "Rain",
		Artist:       "Ana",
		Category:     "c1",
		CategoryType: "t1",
		Duration:     185,
		ReleaseDate:  "2025-03-09",
	}
}

func TestMusicClient(t *testing.T) {
	t.Run("Categories", func(t *testing.T) {
		_, api := newFakeAdmin(t, map[string]string{"GET /categories": `[
			{"_id":"c1","name":"Sleep","types":[{"_id":"t1","name":"Binaural"}]},
			{"_id":"c2","name":"Focus","types":[]}
		]`})

		categories, err := NewMusicClient(api).Categories(context.Background())
		if err != nil {
			t.Fatalf("Categories() error = %v", err)
		}
		if len(categories) != 2 || categories[0].Types[0].ID != "t1" || len(categories[1].Types) != 0 {
			t.Errorf("unexpected categories %+v", categories)
		}
	})

	t.Run("Create sends metadata and both files", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/music/create" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
				t.Errorf("expected admin token, got %q", got)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("expected multipart form: %v", err)
				return
			}

			want := map[string]string{
				"title": "Rain", "artist": "Ana", "category": "c1", "categoryType": "t1",
				"duration": "185", "releaseDate": "2025-03-09",
			}
			for field, value := range want {
				if got := r.FormValue(field); got != value {
					t.Errorf("field %s = %q, want %q", field, got, value)
				}
			}

			for field, name := range map[string]string{"file": "rain.mp3", "thumbnail": "cover.png"} {
				file, header, err := r.FormFile(field)
				if err != nil {
					t.Errorf("expected %s form file: %v", field, err)
					continue
				}
				data, _ := io.ReadAll(file)
				file.Close()
				if header.Filename != name || len(data) == 0 {
					t.Errorf("unexpected %s part %s (%d bytes)", field, header.Filename, len(data))
				}
			}

			w.Write([]byte(`{"_id":"m1","title":"Rain"}`))
		}))
		defer server.Close()

		api := NewAPIService(server.URL+"/api", nil, tu.StaticToken("admin-token"))

		var progress []int
		created, err := NewMusicClient(api).Create(context.Background(), sampleTrack(),
			tu.NewMemFile("rain.mp3", "ID3 audio bytes"), tu.NewMemFile("cover.png", "png bytes"),
			func(p int) { progress = append(progress, p) })
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID != "m1" || created.Title != "Rain" {
			t.Errorf("unexpected created track %+v", created)
		}
		if len(progress) == 0 || progress[len(progress)-1] != 100 {
			t.Errorf("expected progress across both files to reach 100, got %v", progress)
		}
	})

	t.Run("Create reports every problem without sending", func(t *testing.T) {
		fake, api := newFakeAdmin(t, nil)

		_, err := NewMusicClient(api).Create(context.Background(), models.Track{ReleaseDate: "2025-03-09"},
			tu.NewMemFile("rain.flac", "x"), nil, nil)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		for _, want := range []string{"title is required", "artist is required", "category is required",
			"only MP3 and WAV files are allowed", "thumbnail is required"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected %q in %v", want, err)
			}
		}
		if len(fake.requests) != 0 {
			t.Errorf("expected no requests, got %v", fake.requests)
		}
	})

	t.Run("Create surfaces server errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}))
		defer server.Close()

		api := NewAPIService(server.URL, nil, tu.StaticToken("admin-token"))
		_, err := NewMusicClient(api).Create(context.Background(), sampleTrack(),
			tu.NewMemFile("rain.wav", "RIFF"), tu.NewMemFile("cover.jpg", "jpg"), nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if got := tasks.FailureMessage(err); got != "File is too large. Please try a smaller file." {
			t.Errorf("unexpected failure message %q", got)
		}
	})

	t.Run("Create with unreadable thumbnail", func(t *testing.T) {
		_, api := newFakeAdmin(t, nil)
		_, err := NewMusicClient(api).Create(context.Background(), sampleTrack(),
			tu.NewMemFile("rain.mp3", "x"), missingImage{}, nil)
		if err == nil || !strings.Contains(err.Error(), "failed to open cover.png") {
			t.Errorf("expected open error, got %v", err)
		}
	})
}

func TestTrackProblems(t *testing.T) {
	tc := []struct {
		name      string
		audio     tasks.FileRef
		thumbnail tasks.FileRef
		want      []string
	}{
		{name: "complete", audio: tu.NewMemFile("a.mp3", "x"), thumbnail: tu.NewMemFile("c.png", "x")},
		{name: "wav accepted", audio: tu.NewMemFile("a.WAV", "x"), thumbnail: tu.NewMemFile("c.webp", "x")},
		{name: "no files", want: []string{"audio file is required", "thumbnail is required"}},
		{name: "thumbnail not an image", audio: tu.NewMemFile("a.mp3", "x"), thumbnail: tu.NewMemFile("c.txt", "x"), want: []string{"thumbnail must be an image"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := TrackProblems(sampleTrack(), tt.audio, tt.thumbnail)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("TrackProblems() = %q, want %q", got, tt.want)
			}
		})
	}
}

type missingImage struct{}

func (missingImage) Name() string { return "cover.png" }
func (missingImage) Size() int64 { return 10 }
func (missingImage) Open() (io.ReadCloser, error) { return nil, errors.New("no such file") }
