package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

const (
	categoriesPath  = "/categories"
	musicCreatePath = "/music/create"
)

// MusicClient creates single catalog tracks and reads the categories they are filed under.
type MusicClient struct {
	api *APIService
}

func NewMusicClient(api *APIService) *MusicClient {
	return &MusicClient{api: api}
}

// Categories returns every category with its types.
func (c *MusicClient) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.api.call(ctx, http.MethodGet, categoriesPath, nil, &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Create posts track with its audio file and thumbnail as one multipart form and returns the track carrying the
// ID the server assigned. Progress follows the bytes of both files.
func (c *MusicClient) Create(ctx context.Context, track models.Track, audio, thumbnail tasks.FileRef, onProgress func(int)) (models.Track, error) {
	if err := models.TrackError(TrackProblems(track, audio, thumbnail)); err != nil {
		return models.Track{}, err
	}

	fields := [][2]string{
		{"title", track.Title},
		{"artist", track.Artist},
		{"category", track.Category},
		{"categoryType", track.CategoryType},
		{"duration", strconv.Itoa(track.Duration)},
		{"releaseDate", track.ReleaseDate},
	}
	files := []formFile{{field: "file", file: audio}, {field: "thumbnail", file: thumbnail}}

	body, contentType, err := streamForm(fields, files, onProgress)
	if err != nil {
		return models.Track{}, err
	}
	defer body.Close()

	req, err := c.api.NewRequest(ctx, http.MethodPost, musicCreatePath, body)
	if err != nil {
		return models.Track{}, err
	}
	req.Header.Set("Content-Type", contentType)
	if err := c.api.authorize(req); err != nil {
		return models.Track{}, err
	}

	_, raw, err := c.api.sendForm(req)
	if err != nil {
		return models.Track{}, fmt.Errorf("failed to create track: %w", err)
	}

	var created struct {
		ID string `json:"_id"`
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := decodeData(raw, &created); err != nil {
			return models.Track{}, err
		}
	}
	track.ID = created.ID
	return track, nil
}

// TrackProblems lists everything wrong with a track and its files before anything is sent.
func TrackProblems(track models.Track, audio, thumbnail tasks.FileRef) []string {
	problems := track.Problems()
	switch {
	case audio == nil:
		problems = append(problems, "audio file is required")
	case !tasks.Accepts(audio.Name(), models.TrackExtensions):
		problems = append(problems, "only MP3 and WAV files are allowed")
	}
	switch {
	case thumbnail == nil:
		problems = append(problems, "thumbnail is required")
	case tasks.DetectKind(thumbnail.Name(), "") != tasks.KindImage:
		problems = append(problems, "thumbnail must be an image")
	}
	return problems
}
