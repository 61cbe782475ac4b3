package app

import (
	"auctions/domain"
	"auctions/pkg/events"
	"auctions/pkg/httperror"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateCommentHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
}

func NewCreateCommentHandler(repository Repository, eventPublisher *EventPublisher) *CreateCommentHandler {
	return &CreateCommentHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
	}
}

type CreateCommentRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
	Content   string `json:"content" validate:"required,max=1000"`
}

type CreateCommentResponse struct {
	Comment domain.Comment `json:"comment"`
}

func (h *CreateCommentHandler) Handle(ctx context.Context, req *CreateCommentRequest) (*CreateCommentResponse, error) {
	if err := validateRequest(req, "comments.create"); err != nil {
		return nil, err
	}

	listing, err := h.repository.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, listingLookupError("comments.create", err)
	}

	comment, err := h.repository.CreateComment(ctx, domain.Comment{
		ID:        uuid.NewString(),
		ListingID: listing.ID,
		UserID:    req.UserID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, httperror.InternalServerError("comments.create.internal_error", "Failed to create comment", nil)
	}

	h.eventPublisher.publish(ctx, events.CommentCreatedEvent, events.CommentCreatedPayload{
		ID:        comment.ID,
		ListingID: comment.ListingID,
		AuthorID:  comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}, zap.String("commentId", comment.ID))

	return &CreateCommentResponse{
		Comment: comment,
	}, nil
}

type GetCommentsHandler struct {
	repository Repository
}

func NewGetCommentsHandler(repository Repository) *GetCommentsHandler {
	return &GetCommentsHandler{
		repository: repository,
	}
}

type GetCommentsRequest struct {
	ListingID string `json:"-" params:"id"`
	Page      int    `query:"page"`
	PageSize  int    `query:"limit"`
}

type GetCommentsResponse struct {
	Comments   []domain.Comment `json:"comments"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

func (h *GetCommentsHandler) Handle(ctx context.Context, req *GetCommentsRequest) (*GetCommentsResponse, error) {
	p := paginate(req.Page, req.PageSize)

	comments, err := h.repository.GetCommentsByListingID(ctx, req.ListingID, p.PageSize, p.Offset)
	if err != nil {
		return nil, httperror.InternalServerError(
			"comments.index.failed",
			"Comments repository failed to retrieve comments",
			nil,
		)
	}

	totalItems, err := h.repository.CountComments(ctx, req.ListingID)
	if err != nil {
		return nil, httperror.InternalServerError(
			"comments.count_comments.failed",
			"Failed to count comments",
			nil,
		)
	}

	return &GetCommentsResponse{
		Comments:   comments,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: totalItems,
		TotalPages: p.totalPages(totalItems),
	}, nil
}

type DeleteCommentHandler struct {
	repository     Repository
	eventPublisher *EventPublisher
}

func NewDeleteCommentHandler(repository Repository, eventPublisher *EventPublisher) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		repository:     repository,
		eventPublisher: eventPublisher,
	}
}

type DeleteCommentRequest struct {
	ListingID string `json:"-" params:"id" validate:"required"`
	CommentID string `json:"-" params:"commentId" validate:"required"`
	UserID    string `json:"-" reqHeader:"User-ID" validate:"required"`
}

type DeleteCommentResponse struct {
}

// Handle deletes a comment on behalf of its author. Anyone else is refused and
// nothing changes.
func (h *DeleteCommentHandler) Handle(ctx context.Context, req *DeleteCommentRequest) (*DeleteCommentResponse, error) {
	if err := validateRequest(req, "comment.destroy"); err != nil {
		return nil, err
	}

	comment, err := h.repository.GetCommentByID(ctx, req.CommentID)
	if err != nil || comment.ListingID != req.ListingID {
		if err == nil || errors.Is(err, domain.ErrNotFound) {
			return nil, httperror.NotFound("comment.destroy.not_found", "Comment not found", nil)
		}
		return nil, httperror.InternalServerError("comment.destroy.failed", "Failed to retrieve comment", nil)
	}

	if err := comment.AuthorizeDelete(req.UserID); err != nil {
		return nil, httperror.Forbidden("comment.destroy.forbidden", "Only the author can delete this comment", nil)
	}

	if err := h.repository.DeleteComment(ctx, comment.ID); err != nil {
		return nil, httperror.InternalServerError("comment.destroy.failed", "Failed to delete comment", nil)
	}

	h.eventPublisher.publish(ctx, events.CommentDeletedEvent, events.CommentDeletedPayload{
		ID:        comment.ID,
		ListingID: comment.ListingID,
		AuthorID:  comment.UserID,
		DeletedAt: time.Now().UTC(),
	}, zap.String("commentId", comment.ID))

	return nil, httperror.NoContent("comment.destroy.success", "Comment deleted", nil)
}
