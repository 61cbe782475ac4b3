package grpc

import (
	"auctions/app"
	"auctions/domain"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ListingServiceName   = "auctions.listing.v1.ListingService"
	GetListingFullMethod = "/" + ListingServiceName + "/GetListing"
)

// ListingServiceServer serves listing auction state to other services. The
// request carries the listing id; the reply mirrors the HTTP listing detail.
type ListingServiceServer interface {
	GetListing(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var ListingServiceDesc = grpc.ServiceDesc{
	ServiceName: ListingServiceName,
	HandlerType: (*ListingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetListing",
			Handler:    getListingHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "auctions/listing/v1/listing.proto",
}

func getListingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ListingServiceServer).GetListing(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetListingFullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ListingServiceServer).GetListing(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// GetListing calls ListingService.GetListing over conn.
func GetListing(ctx context.Context, conn grpc.ClientConnInterface, listingID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, GetListingFullMethod, wrapperspb.String(listingID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type ListingService struct {
	repository app.Repository
}

var _ ListingServiceServer = (*ListingService)(nil)

func NewListingService(repository app.Repository) *ListingService {
	return &ListingService{repository: repository}
}

func (s *ListingService) GetListing(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "listing id is required")
	}

	listing, err := s.repository.GetListing(ctx, req.GetValue())
	if err != nil {
		return nil, mapError(err)
	}

	bid, err := s.repository.GetCurrentBid(ctx, listing.ID)
	var current *domain.Bid
	switch {
	case err == nil:
		current = &bid
	case !errors.Is(err, domain.ErrNoBid):
		return nil, mapError(err)
	}

	out, err := structpb.NewStruct(listingFields(listing, current))
	if err != nil {
		zap.L().Error("Failed to encode listing", zap.String("listingId", listing.ID), zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func listingFields(listing domain.Listing, current *domain.Bid) map[string]interface{} {
	fields := map[string]interface{}{
		"id":            listing.ID,
		"title":         listing.Title,
		"description":   listing.Description,
		"startingPrice": listing.StartingPrice,
		"category":      listing.Category,
		"sellerId":      listing.SellerID,
		"active":        listing.Active,
		"imageUrl":      nil,
		"state":         string(domain.StateOf(listing, current)),
		"minimumOffer":  domain.MinimumOffer(listing, current),
		"currentBid":    nil,
		"createdAt":     listing.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":     listing.UpdatedAt.Format(time.RFC3339Nano),
	}

	if listing.ImageURL != nil {
		fields["imageUrl"] = *listing.ImageURL
	}

	if current != nil {
		fields["currentBid"] = map[string]interface{}{
			"id":         current.ID,
			"offer":      current.Offer,
			"bidderId":   current.BidderID,
			"offerCount": current.OfferCount,
			"open":       current.Open,
			"updatedAt":  current.UpdatedAt.Format(time.RFC3339Nano),
		}
	}

	return fields
}

func mapError(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return status.Error(codes.NotFound, "listing not found")
	}
	return status.Error(codes.Internal, "internal error")
}
