package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vidmark.org/internal/audit"
	"vidmark.org/internal/auth"
	"vidmark.org/internal/obs"
	"vidmark.org/internal/stream"
	"vidmark.org/internal/video"
)

// Multipart metadata fields are capped well below the media size; the form
// parser only keeps this much in memory before spilling to disk.
const multipartMemory = 32 << 20

func (a *API) handleVideoCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	a.createVideo(w, r)
}

func (a *API) handleVideoList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	videos, err := a.videos.List(r.Context())
	if err != nil {
		obs.Logger().Printf("list videos failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list videos")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (a *API) handleVideoResource(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/video/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid video id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getVideo(w, r, id)
	case http.MethodDelete:
		a.deleteVideo(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) createVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, `video file is required (field "video")`)
		return
	}
	defer file.Close()

	in := video.CreateInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if payload, ok := auth.PayloadFromContext(r.Context()); ok {
		in.UserID = payload.UserID
	}

	if err := parseGeometry(r, "lines", &in.Lines); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := parseGeometry(r, "masks", &in.Masks); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	v, err := a.videos.Create(r.Context(), in, file, header.Filename)
	if err != nil {
		if errors.Is(err, video.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		obs.Logger().Printf("create video failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "failed to create video")
		return
	}

	audit.LogEvent(r.Context(), "video.create", map[string]any{
		"video_id": v.ID,
		"title":    v.Title,
		"lines":    len(v.Lines),
		"masks":    len(v.Masks),
	})
	a.stream.Publish(stream.Event{Kind: "video.created", VideoID: v.ID, Title: v.Title})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "video uploaded",
		"video":   v,
	})
}

func (a *API) getVideo(w http.ResponseWriter, r *http.Request, id int64) {
	v, err := a.videos.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, video.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "video not found")
			return
		}
		obs.Logger().Printf("get video %d failed: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "failed to load video")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) deleteVideo(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.videos.Delete(r.Context(), id); err != nil {
		if errors.Is(err, video.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "video not found")
			return
		}
		obs.Logger().Printf("delete video %d failed: %v", id, err)
		writeError(w, r, http.StatusInternalServerError, "failed to delete video")
		return
	}

	audit.LogEvent(r.Context(), "video.delete", map[string]any{
		"video_id": id,
	})
	a.stream.Publish(stream.Event{Kind: "video.deleted", VideoID: id})

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "video deleted",
	})
}

// parseGeometry reads a JSON-encoded form field into dst. The field must be
// present even when the payload is empty ("[]").
func parseGeometry(r *http.Request, field string, dst any) error {
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return errors.New(field + " are required")
	}
	if err := json.Unmarshal([]byte(values[0]), dst); err != nil {
		return errors.New("invalid JSON in " + field)
	}
	return nil
}
