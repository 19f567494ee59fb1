package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mediaforge/vod-service/internal/http/middleware"
	"github.com/mediaforge/vod-service/internal/services/upload"
	"github.com/mediaforge/vod-service/internal/storage"
	"github.com/mediaforge/vod-service/internal/types"
	"github.com/mediaforge/vod-service/internal/utils/response"
)

type CreateMediaResponse struct {
	Media  types.MediaItem    `json:"media"`
	Upload *upload.Credential `json:"upload"`
}

// Create begins an upload session: it creates the media item and returns a
// time-boxed upload credential from the encoder
// @Summary Create a media item and upload session
// @Description Create a media item in pending state and mint a direct-upload URL at the encoding provider
// @Tags media
// @Accept json
// @Produce json
// @Param media body types.CreateMediaRequest true "Media details"
// @Success 201 {object} CreateMediaResponse "Media item and upload credential"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 502 {object} response.Response "Encoder unavailable, media item stays pending"
// @Security BearerAuth
// @Router /media [post]
func Create(broker *upload.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req types.CreateMediaRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(req)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		item, credential, err := broker.BeginUpload(ctx, userID, req.Title)
		if err != nil {
			if errors.Is(err, upload.ErrEmptyTitle) {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}
			if errors.Is(err, upload.ErrUpstreamUnavailable) {
				// The item exists and stays pending; the caller can retry
				// the upload step against the same resource.
				response.WriteJSON(w, http.StatusBadGateway, response.Response{
					Status: response.StatusError,
					Error:  "upload session could not be created, retry later",
					Data:   map[string]string{"media_id": item.ID},
				})
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		slog.Info("Upload session created",
			slog.String("media_id", item.ID),
			slog.String("owner_id", userID))

		response.WriteJSON(w, http.StatusCreated, CreateMediaResponse{
			Media:  item,
			Upload: credential,
		})
	}
}

// Get returns a single media item
// @Summary Get a media item
// @Tags media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} types.MediaItem "Media item"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Media not found"
// @Security BearerAuth
// @Router /media/{id} [get]
func Get(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		mediaID := r.PathValue("id")
		if mediaID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("media ID is required")))
			return
		}

		item, err := store.GetMediaItemByID(mediaID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("media not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, item)
	}
}

// List returns the caller's media items
// @Summary List media items
// @Tags media
// @Produce json
// @Success 200 {array} types.MediaItem "Media items"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /media [get]
func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		items, err := store.ListMediaItemsForOwner(userID)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Media items fetched successfully", items))
	}
}
