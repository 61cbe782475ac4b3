package grpc

import (
	"auctions/domain"
	"auctions/infra/memory"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startTestServer(t *testing.T, repo *memory.Repository) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := NewServerWithListener(lis)
	server.RegisterListingService(NewListingService(repo))

	go func() { _ = server.Start() }()
	t.Cleanup(func() { _ = server.GracefulStop() })

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestListingService_GetListing(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.CreateListing(ctx, domain.Listing{
		ID: "l1", Title: "Lamp", Description: "Old lamp", StartingPrice: 100,
		Category: "home", SellerID: "seller", Active: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	conn := startTestServer(t, repo)

	out, err := GetListing(ctx, conn, "l1")
	require.NoError(t, err)
	fields := out.AsMap()
	assert.Equal(t, "l1", fields["id"])
	assert.Equal(t, "no_bid", fields["state"])
	assert.Equal(t, float64(100), fields["minimumOffer"])
	assert.Nil(t, fields["currentBid"])
	assert.Nil(t, fields["imageUrl"])

	require.NoError(t, repo.SwapCurrentBid(ctx, 0, domain.Bid{
		ID: "b1", ListingID: "l1", Offer: 150, BidderID: "alice", OfferCount: 1, Open: true, UpdatedAt: now,
	}))

	out, err = GetListing(ctx, conn, "l1")
	require.NoError(t, err)
	fields = out.AsMap()
	assert.Equal(t, "open", fields["state"])
	assert.Equal(t, float64(151), fields["minimumOffer"])

	bid, ok := fields["currentBid"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(150), bid["offer"])
	assert.Equal(t, "alice", bid["bidderId"])
	assert.Equal(t, float64(1), bid["offerCount"])
}

func TestListingService_Errors(t *testing.T) {
	conn := startTestServer(t, memory.NewRepository())
	ctx := context.Background()

	_, err := GetListing(ctx, conn, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = GetListing(ctx, conn, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_HealthReportsListingService(t *testing.T) {
	conn := startTestServer(t, memory.NewRepository())

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{
		Service: ListingServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRecoveryInterceptor(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: GetListingFullMethod}

	resp, err := recoveryInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err = recoveryInterceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}
