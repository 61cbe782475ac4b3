package app

import (
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageSize = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

type UploadListingImageHandler struct {
	repository     Repository
	store          ImageStore
	imageURL       func(key string) string
	eventPublisher *EventPublisher
}

func NewUploadListingImageHandler(repository Repository, store ImageStore, imageURL func(key string) string, eventPublisher *EventPublisher) *UploadListingImageHandler {
	return &UploadListingImageHandler{
		repository:     repository,
		store:          store,
		imageURL:       imageURL,
		eventPublisher: eventPublisher,
	}
}

// UploadListingImageRequest is filled by the multipart route adapter.
type UploadListingImageRequest struct {
	ListingID   string `validate:"required"`
	UserID      string `validate:"required"`
	ContentType string
	Content     []byte
}

type UploadListingImageResponse struct {
	ListingID string `json:"listingId"`
	ImageURL  string `json:"imageUrl"`
}

func (h *UploadListingImageHandler) Handle(ctx context.Context, req *UploadListingImageRequest) (*UploadListingImageResponse, error) {
	if err := validateRequest(req, "upload_listing_image"); err != nil {
		return nil, err
	}

	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("upload_listing_image", err)
	}
	if err := listing.AuthorizeSeller(req.UserID); err != nil {
		return nil, httperror.Forbidden("upload_listing_image.forbidden", "You are not authorized to upload images for this listing.", nil)
	}

	if len(req.Content) == 0 {
		return nil, httperror.BadRequest("upload.missing_file", "Image file is required (use 'image' field)", nil)
	}

	if len(req.Content) > maxImageSize {
		return nil, httperror.BadRequest("upload.file_too_large", "File size must not exceed 5MB",
			map[string]any{
				"size_mb": float64(len(req.Content)) / 1024 / 1024,
				"max_mb":  5,
			})
	}

	if !allowedImageTypes[req.ContentType] {
		return nil, httperror.BadRequest("upload.invalid_content_type", "Only PNG, JPEG/JPG images are allowed",
			map[string]any{
				"received": req.ContentType,
				"allowed":  []string{"image/png", "image/jpeg", "image/jpg"},
			})
	}

	key := fmt.Sprintf("listings/%s/%s%s", listing.ID, uuid.NewString(), extensionFor(req.ContentType))

	if err := h.store.Upload(key, req.Content); err != nil {
		zap.L().Error("Failed to upload image", zap.String("listingId", listing.ID), zap.String("key", key), zap.Error(err))
		return nil, httperror.InternalServerError("upload_listing_image.upload.failed", "Failed to upload image to storage", nil)
	}

	imageURL := h.imageURL(key)

	if err := h.repository.SetListingImage(ctx, listing.ID, imageURL); err != nil {
		if delErr := h.store.Delete(key); delErr != nil {
			zap.L().Warn("Failed to remove orphaned image", zap.String("key", key), zap.Error(delErr))
		}
		zap.L().Error("Failed to save image metadata", zap.String("listingId", listing.ID), zap.Error(err))
		return nil, httperror.InternalServerError("upload_listing_image.store.failed", "Failed to save image metadata", nil)
	}

	h.eventPublisher.publish(ctx, events.ListingImageUploadedEvent, events.ListingImageUploadedPayload{
		ListingID: listing.ID,
		ImageURL:  imageURL,
		CreatedAt: time.Now().UTC(),
	}, zap.String("listingId", listing.ID))

	return &UploadListingImageResponse{
		ListingID: listing.ID,
		ImageURL:  imageURL,
	}, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	default:
		return ".jpg"
	}
}
