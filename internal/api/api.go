package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"github.com/victornm/quizbot/internal/archive"
	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/leaderboard"
	"github.com/victornm/quizbot/internal/quiz"
)

const serviceName = "quizbot.v1.GameService"

type Config struct {
	GRPC        *grpc.Server
	// HTTP is optional. Read-only endpoints are registered on it when set.
	HTTP        *gin.Engine
	Quiz        *quiz.Service
	Leaderboard LeaderboardService
	// Archive is optional. Results of games no longer in memory are not
	// available without it.
	Archive     ArchiveService
}

type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, req leaderboard.GetLeaderboardRequest) (*domain.Leaderboard, error)
}

type ArchiveService interface {
	ListResults(ctx context.Context, req archive.ListResultsRequest) ([]domain.Result, error)
	GetGame(ctx context.Context, req archive.GetGameRequest) (*archive.GameSummary, error)
}

type API struct {
	qs *quiz.Service
	ls LeaderboardService
	as ArchiveService
}

func New(c Config) *API {
	a := &API{
		qs: c.Quiz,
		ls: c.Leaderboard,
		as: c.Archive,
	}

	// gRPC APIs
	c.GRPC.RegisterService(&serviceDesc, a)

	// HTTP APIs
	if c.HTTP != nil {
		a.registerHTTP(c.HTTP)
	}

	return a
}

// GameServiceServer is the server side of quizbot.v1.GameService.
type GameServiceServer interface {
	ListPacks(context.Context, *ListPacksRequest) (*ListPacksResponse, error)
	NewGame(context.Context, *NewGameRequest) (*NewGameResponse, error)
	Join(context.Context, *JoinRequest) (*JoinResponse, error)
	Start(context.Context, *StartRequest) (*StartResponse, error)
	CurrentQuestion(context.Context, *CurrentQuestionRequest) (*CurrentQuestionResponse, error)
	SubmitAnswer(context.Context, *SubmitAnswerRequest) (*SubmitAnswerResponse, error)
	Leave(context.Context, *LeaveRequest) (*LeaveResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	GetResults(context.Context, *GetResultsRequest) (*GetResultsResponse, error)
	GetLeaderboard(context.Context, *GetLeaderboardRequest) (*GetLeaderboardResponse, error)
	GetGameSummary(context.Context, *GetGameSummaryRequest) (*GetGameSummaryResponse, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListPacks", GameServiceServer.ListPacks),
		unary("NewGame", GameServiceServer.NewGame),
		unary("Join", GameServiceServer.Join),
		unary("Start", GameServiceServer.Start),
		unary("CurrentQuestion", GameServiceServer.CurrentQuestion),
		unary("SubmitAnswer", GameServiceServer.SubmitAnswer),
		unary("Leave", GameServiceServer.Leave),
		unary("Cancel", GameServiceServer.Cancel),
		unary("GetResults", GameServiceServer.GetResults),
		unary("GetLeaderboard", GameServiceServer.GetLeaderboard),
		unary("GetGameSummary", GameServiceServer.GetGameSummary),
	},
	Metadata: "quizbot/v1/game.json",
}

func unary[Req, Resp any](method string, call func(GameServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	handle := func(srv any, ctx context.Context, req *Req) (any, error) {
		resp, err := call(srv.(GameServiceServer), ctx, req)
		if err != nil {
			return nil, errors.Convert(err)
		}
		return resp, nil
	}

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}

			if interceptor == nil {
				return handle(srv, ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return handle(srv, ctx, req.(*Req))
			})
		},
	}
}

func (a *API) ListPacks(ctx context.Context, _ *ListPacksRequest) (*ListPacksResponse, error) {
	packs, err := a.qs.ListPacks(ctx)
	if err != nil {
		return nil, err
	}

	resp := &ListPacksResponse{Packs: make([]Pack, 0, len(packs))}
	for _, p := range packs {
		resp.Packs = append(resp.Packs, Pack{PackID: p.PackID, Title: p.Title})
	}

	return resp, nil
}

func (a *API) NewGame(ctx context.Context, req *NewGameRequest) (*NewGameResponse, error) {
	if req.Participant == "" || req.PackID == "" {
		return nil, invalidArgument("participant and pack_id are required")
	}

	ss, err := a.qs.NewGame(ctx, quiz.NewGameRequest{
		Participant: domain.Participant(req.Participant),
		Name:        displayName(req.Participant, req.Name),
		PackID:      req.PackID,
	})
	if err != nil {
		return nil, err
	}

	return &NewGameResponse{Session: toSession(ss)}, nil
}

func (a *API) Join(ctx context.Context, req *JoinRequest) (*JoinResponse, error) {
	if req.Participant == "" {
		return nil, invalidArgument("participant is required")
	}

	ss, err := a.qs.Join(ctx, quiz.JoinRequest{
		Participant: domain.Participant(req.Participant),
		Name:        displayName(req.Participant, req.Name),
		SessionID:   req.SessionID,
	})
	if err != nil {
		return nil, err
	}

	return &JoinResponse{Session: toSession(ss)}, nil
}

func (a *API) Start(ctx context.Context, req *StartRequest) (*StartResponse, error) {
	p, err := a.qs.Start(ctx, domain.Participant(req.Participant))
	if err != nil {
		return nil, err
	}

	return &StartResponse{Progress: *toProgress(p)}, nil
}

func (a *API) CurrentQuestion(ctx context.Context, req *CurrentQuestionRequest) (*CurrentQuestionResponse, error) {
	p, err := a.qs.CurrentQuestion(ctx, domain.Participant(req.Participant))
	if err != nil {
		return nil, err
	}

	return &CurrentQuestionResponse{Progress: *toProgress(p)}, nil
}

func (a *API) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	if req.QuestionID == "" || req.VariantID == "" {
		return nil, invalidArgument("question_id and variant_id are required")
	}

	resp, err := a.qs.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{
		Participant: domain.Participant(req.Participant),
		QuestionID:  req.QuestionID,
		VariantID:   req.VariantID,
	})
	if err != nil {
		return nil, err
	}

	return &SubmitAnswerResponse{
		IsCorrect:  resp.Answer.IsCorrect,
		Points:     resp.Answer.PointsAwarded,
		TotalScore: resp.Player.Score,
		Next:       toProgress(resp.Next),
	}, nil
}

func (a *API) Leave(ctx context.Context, req *LeaveRequest) (*LeaveResponse, error) {
	resp, err := a.qs.Leave(ctx, domain.Participant(req.Participant))
	if err != nil {
		return nil, err
	}

	return &LeaveResponse{SessionID: resp.SessionID, Next: toProgress(resp.Next)}, nil
}

func (a *API) Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	resp, err := a.qs.Cancel(ctx, domain.Participant(req.Participant))
	if err != nil {
		return nil, err
	}

	return &CancelResponse{SessionID: resp.SessionID, Cancelled: resp.Cancelled}, nil
}

// GetResults returns the live results of a game, or of a game finished
// recently. Older games are read from the archive.
func (a *API) GetResults(ctx context.Context, req *GetResultsRequest) (*GetResultsResponse, error) {
	results := a.qs.Results(ctx, req.SessionID)
	if len(results) == 0 && a.as != nil {
		archived, err := a.as.ListResults(ctx, archive.ListResultsRequest{SessionID: req.SessionID})
		if err != nil && !errors.HasReason(err, errors.ReasonSessionNotFound) {
			return nil, err
		}
		results = archived
	}

	out := toResults(results)
	if out == nil {
		out = []Result{}
	}

	return &GetResultsResponse{Results: out}, nil
}

func (a *API) GetLeaderboard(ctx context.Context, req *GetLeaderboardRequest) (*GetLeaderboardResponse, error) {
	l, err := a.ls.GetLeaderboard(ctx, leaderboard.GetLeaderboardRequest{
		SessionID: req.SessionID,
	})
	if err != nil {
		return nil, err
	}

	resp := &GetLeaderboardResponse{
		Leaderboard: Leaderboard{
			SessionID: l.SessionID,
			Entries:   make([]LeaderboardEntry, 0, len(l.Entries)),
		},
	}

	for _, e := range l.Entries {
		resp.Leaderboard.Entries = append(resp.Leaderboard.Entries, LeaderboardEntry{
			Participant: string(e.Participant),
			Score:       e.Score,
		})
	}

	return resp, nil
}

func (a *API) GetGameSummary(ctx context.Context, req *GetGameSummaryRequest) (*GetGameSummaryResponse, error) {
	if a.as == nil {
		return nil, errors.New(errors.CodeUnavailable, errors.WithMessagef("archive is not configured"))
	}

	g, err := a.as.GetGame(ctx, archive.GetGameRequest{SessionID: req.SessionID})
	if err != nil {
		return nil, err
	}

	return &GetGameSummaryResponse{Game: toGameSummary(g)}, nil
}

func displayName(participant, name string) string {
	if name != "" {
		return name
	}
	return "Player_" + participant
}

func invalidArgument(msg string) error {
	return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("%s", msg))
}
