package server

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nunbody/internal/analysis"
	"nunbody/internal/remote"
)

// photoRef accepts a photo id sent as a JSON string or number.
type photoRef string

func (p *photoRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = photoRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = photoRef(n.String())
	return nil
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req struct {
		PhotoID photoRef `json:"photoId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PhotoID == "" {
		badRequest(c, "choose a photo to analyze")
		return
	}
	raw, err := s.remote.Analyze(c.Request.Context(), string(req.PhotoID))
	if err != nil {
		s.fail(c, err, "Analysis failed")
		return
	}
	a := analysis.Normalize(raw)
	ok(c, gin.H{"photoId": req.PhotoID, "analysis": a, "report": analysis.Render(a)})
}

func (s *Server) handleCompare(c *gin.Context) {
	var req struct {
		PhotoID1 photoRef `json:"photoId1"`
		PhotoID2 photoRef `json:"photoId2"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.PhotoID1 == "" || req.PhotoID2 == "" {
		badRequest(c, "choose a before and an after photo")
		return
	}
	if req.PhotoID1 == req.PhotoID2 {
		badRequest(c, "choose two different photos")
		return
	}
	raw, err := s.remote.Compare(c.Request.Context(), string(req.PhotoID1), string(req.PhotoID2))
	if err != nil {
		s.fail(c, err, "Comparison failed")
		return
	}
	cmp := analysis.NormalizeComparison(raw)
	ok(c, gin.H{"comparison": cmp, "report": analysis.RenderComparison(cmp)})
}

func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.remote.ListHistory(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Could not load history")
		return
	}
	ok(c, gin.H{"history": entries})
}

// GET /api/analysis/history/:id. Stored analyses never change; the raw
// payload is cached per user.
func (s *Server) handleHistoryDetail(c *gin.Context) {
	id := c.Param("id")
	if len(id) > 64 {
		badRequest(c, "invalid history id")
		return
	}
	user, loggedIn := s.remote.Session().User()
	if !loggedIn {
		s.fail(c, remote.ErrNotLoggedIn, "")
		return
	}
	ctx := c.Request.Context()
	key := user.ID + ":" + id

	raw, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("analysis cache read failed", zap.String("id", id), zap.Error(err))
	}
	if !hit {
		raw, err = s.remote.GetHistory(ctx, id)
		if err != nil {
			s.fail(c, err, "Could not load analysis")
			return
		}
		if string(raw) != "{}" {
			if err := s.cache.Set(ctx, key, raw); err != nil {
				s.log.Warn("analysis cache write failed", zap.String("id", id), zap.Error(err))
			}
		}
	}

	res := analysis.NormalizeAny(raw)
	var report string
	if res.Analysis != nil {
		report = analysis.Render(*res.Analysis)
	} else {
		report = analysis.RenderComparison(*res.Comparison)
	}
	ok(c, gin.H{"result": res, "report": report, "cached": hit})
}
