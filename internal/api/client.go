package api

import (
	"context"

	"google.golang.org/grpc"

	"github.com/victornm/quizbot/internal/errors"
)

// Client calls quizbot.v1.GameService. Errors are returned as *errors.Error
// with their reason restored.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, errors.FromGRPC(err)
	}
	return out, nil
}

func (c *Client) ListPacks(ctx context.Context, in *ListPacksRequest, opts ...grpc.CallOption) (*ListPacksResponse, error) {
	return invoke[ListPacksResponse](ctx, c, "ListPacks", in, opts...)
}

func (c *Client) NewGame(ctx context.Context, in *NewGameRequest, opts ...grpc.CallOption) (*NewGameResponse, error) {
	return invoke[NewGameResponse](ctx, c, "NewGame", in, opts...)
}

func (c *Client) Join(ctx context.Context, in *JoinRequest, opts ...grpc.CallOption) (*JoinResponse, error) {
	return invoke[JoinResponse](ctx, c, "Join", in, opts...)
}

func (c *Client) Start(ctx context.Context, in *StartRequest, opts ...grpc.CallOption) (*StartResponse, error) {
	return invoke[StartResponse](ctx, c, "Start", in, opts...)
}

func (c *Client) CurrentQuestion(ctx context.Context, in *CurrentQuestionRequest, opts ...grpc.CallOption) (*CurrentQuestionResponse, error) {
	return invoke[CurrentQuestionResponse](ctx, c, "CurrentQuestion", in, opts...)
}

func (c *Client) SubmitAnswer(ctx context.Context, in *SubmitAnswerRequest, opts ...grpc.CallOption) (*SubmitAnswerResponse, error) {
	return invoke[SubmitAnswerResponse](ctx, c, "SubmitAnswer", in, opts...)
}

func (c *Client) Leave(ctx context.Context, in *LeaveRequest, opts ...grpc.CallOption) (*LeaveResponse, error) {
	return invoke[LeaveResponse](ctx, c, "Leave", in, opts...)
}

func (c *Client) Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	return invoke[CancelResponse](ctx, c, "Cancel", in, opts...)
}

func (c *Client) GetResults(ctx context.Context, in *GetResultsRequest, opts ...grpc.CallOption) (*GetResultsResponse, error) {
	return invoke[GetResultsResponse](ctx, c, "GetResults", in, opts...)
}

func (c *Client) GetLeaderboard(ctx context.Context, in *GetLeaderboardRequest, opts ...grpc.CallOption) (*GetLeaderboardResponse, error) {
	return invoke[GetLeaderboardResponse](ctx, c, "GetLeaderboard", in, opts...)
}

func (c *Client) GetGameSummary(ctx context.Context, in *GetGameSummaryRequest, opts ...grpc.CallOption) (*GetGameSummaryResponse, error) {
	return invoke[GetGameSummaryResponse](ctx, c, "GetGameSummary", in, opts...)
}
