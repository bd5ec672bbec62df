package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/quizbot/internal/errors"
)

// registerHTTP exposes the read-only RPCs as JSON over HTTP for dashboards.
func (a *API) registerHTTP(e *gin.Engine) {
	g := e.Group("/v1")
	g.GET("/packs", a.httpListPacks)
	g.GET("/sessions/:session_id/results", a.httpGetResults)
	g.GET("/sessions/:session_id/leaderboard", a.httpGetLeaderboard)
	g.GET("/sessions/:session_id/summary", a.httpGetGameSummary)
}

func (a *API) httpListPacks(c *gin.Context) {
	resp, err := a.ListPacks(c.Request.Context(), &ListPacksRequest{})
	respond(c, resp, err)
}

func (a *API) httpGetResults(c *gin.Context) {
	resp, err := a.GetResults(c.Request.Context(), &GetResultsRequest{SessionID: c.Param("session_id")})
	respond(c, resp, err)
}

func (a *API) httpGetLeaderboard(c *gin.Context) {
	resp, err := a.GetLeaderboard(c.Request.Context(), &GetLeaderboardRequest{SessionID: c.Param("session_id")})
	respond(c, resp, err)
}

func (a *API) httpGetGameSummary(c *gin.Context) {
	resp, err := a.GetGameSummary(c.Request.Context(), &GetGameSummaryRequest{SessionID: c.Param("session_id")})
	respond(c, resp, err)
}

func respond(c *gin.Context, resp any, err error) {
	if err != nil {
		e := errors.Convert(err)
		c.JSON(e.HTTPStatusCode(), gin.H{"error": e})
		return
	}

	c.JSON(http.StatusOK, resp)
}
