package main

import (
	"auctions/app"
	"auctions/internal/middleware"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"io"

	"github.com/gofiber/fiber/v2"
)

// dependencies are the collaborators behind the HTTP API. publisher, cache
// and images are optional and stay nil when their backend is not configured.
type dependencies struct {
	repository     app.Repository
	publisher      events.Publisher
	cache          app.SummaryCache
	images         app.ImageStore
	imageURL       func(key string) string
	serviceName    string
	bidMaxAttempts int
}

func registerRoutes(server *fiber.App, deps dependencies) {
	repo := deps.repository
	pub := app.NewEventPublisher(deps.publisher, deps.serviceName)
	auth := middleware.NewSecurityHeadersMiddleware()

	server.Get("/health", healthHandler(deps))

	v1 := server.Group("/api/v1")

	// listings
	v1.Get("/listings", handle[app.GetListingsRequest, app.GetListingsResponse](app.NewGetListingsHandler(repo)))
	v1.Post("/listings", auth, handle[app.CreateListingRequest, app.CreateListingResponse](app.NewCreateListingHandler(repo, pub)))
	v1.Get("/listings/:id", handle[app.GetListingRequest, app.GetListingResponse](app.NewGetListingHandler(repo)))
	v1.Delete("/listings/:id", auth, handle[app.DeleteListingRequest, app.DeleteListingResponse](app.NewDeleteListingHandler(repo, pub)))
	v1.Get("/listings/:id/summary", handle[app.GetListingSummaryRequest, app.GetListingSummaryResponse](app.NewGetListingSummaryHandler(repo, deps.cache)))
	v1.Get("/categories", handle[app.GetCategoriesRequest, app.GetCategoriesResponse](app.NewGetCategoriesHandler(repo)))

	if deps.images != nil {
		v1.Post("/listings/:id/image", auth, handleImageUpload(app.NewUploadListingImageHandler(repo, deps.images, deps.imageURL, pub)))
	}

	// bidding
	v1.Get("/listings/:id/bid", handle[app.GetCurrentBidRequest, app.GetCurrentBidResponse](app.NewGetCurrentBidHandler(repo)))
	v1.Post("/listings/:id/bids", auth, handle[app.PlaceBidRequest, app.PlaceBidResponse](app.NewPlaceBidHandler(repo, pub, deps.bidMaxAttempts)))
	v1.Post("/listings/:id/status", auth, handle[app.ToggleAuctionRequest, app.ToggleAuctionResponse](app.NewToggleAuctionHandler(repo, pub)))

	// watchlist
	v1.Get("/watchlist", auth, handle[app.GetWatchlistRequest, app.GetWatchlistResponse](app.NewGetWatchlistHandler(repo)))
	v1.Put("/watchlist/:id", auth, handle[app.WatchlistRequest, app.WatchlistChangeResponse](app.NewAddToWatchlistHandler(repo)))
	v1.Delete("/watchlist/:id", auth, handle[app.WatchlistRequest, app.WatchlistChangeResponse](app.NewRemoveFromWatchlistHandler(repo)))

	// comments
	v1.Get("/listings/:id/comments", handle[app.GetCommentsRequest, app.GetCommentsResponse](app.NewGetCommentsHandler(repo)))
	v1.Post("/listings/:id/comments", auth, handle[app.CreateCommentRequest, app.CreateCommentResponse](app.NewCreateCommentHandler(repo, pub)))
	v1.Delete("/listings/:id/comments/:commentId", auth, handle[app.DeleteCommentRequest, app.DeleteCommentResponse](app.NewDeleteCommentHandler(repo, pub)))
}

// handleImageUpload reads the multipart "image" field into an upload request.
func handleImageUpload(handler *app.UploadListingImageHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := middleware.CurrentUser(c)
		req := app.UploadListingImageRequest{
			ListingID: c.Params("id"),
			UserID:    user.ID,
		}

		if fileHeader, err := c.FormFile("image"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				return writeError(c, httperror.BadRequest("upload.invalid_file", "Failed to read uploaded file", nil))
			}
			defer file.Close()

			req.Content, err = io.ReadAll(file)
			if err != nil {
				return writeError(c, httperror.BadRequest("upload.invalid_file", "Failed to read uploaded file", nil))
			}
			req.ContentType = fileHeader.Header.Get("Content-Type")
		}

		res, err := handler.Handle(c.UserContext(), &req)
		if err != nil {
			return writeError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

type poolStatsReporter interface {
	GetPoolStats() map[string]interface{}
}

type healthReporter interface {
	IsHealthy() bool
}

// healthHandler reports the service as degraded, still with 200, when the
// event broker connection is down. Storage pool stats are included when the
// repository exposes them.
func healthHandler(deps dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := fiber.Map{"status": "ok"}

		if deps.publisher != nil {
			healthy := true
			if reporter, ok := deps.publisher.(healthReporter); ok {
				healthy = reporter.IsHealthy()
			}
			body["events"] = healthy
			if !healthy {
				body["status"] = "degraded"
			}
		}

		if reporter, ok := deps.repository.(poolStatsReporter); ok {
			body["database"] = reporter.GetPoolStats()
		}

		return c.JSON(body)
	}
}
