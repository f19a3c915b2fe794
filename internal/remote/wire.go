package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"nunbody/internal/models"
)

// flexID accepts ids sent as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	*f = flexID(b)
	return nil
}

// flexTime accepts RFC 3339 strings, "2006-01-02 15:04:05" and unix
// milliseconds. Anything else decodes to the zero time.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*f = flexTime{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] != '"' {
		if ms, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			*f = flexTime(time.UnixMilli(ms).UTC())
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t.UTC())
			return nil
		}
	}
	return nil
}

func (f flexTime) time() time.Time { return time.Time(f) }

// flexFloat accepts a number or a numeric string; anything else is unset.
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat{v: v, ok: true}
	}
	return nil
}

func (f flexFloat) ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}

type wirePhoto struct {
	ID        flexID   `json:"id"`
	PhotoURL  string   `json:"photo_url"`
	BodyPart  string   `json:"body_part"`
	TakenAt   flexTime `json:"taken_at"`
	CreatedAt flexTime `json:"created_at"`
}

func (p wirePhoto) model() models.RemotePhoto {
	taken := p.TakenAt.time()
	if taken.IsZero() {
		taken = p.CreatedAt.time()
	}
	bodyPart := models.BodyPart(p.BodyPart)
	if bodyPart == "" {
		bodyPart = models.BodyPartFull
	}
	return models.RemotePhoto{
		ID:       string(p.ID),
		PhotoURL: p.PhotoURL,
		BodyPart: bodyPart,
		TakenAt:  taken,
	}
}

type wireProfile struct {
	ID    flexID `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (p wireProfile) profile() Profile {
	return Profile{ID: string(p.ID), Email: p.Email, Name: p.Name, Phone: p.Phone}
}

type wireHistory struct {
	ID           flexID    `json:"id"`
	Type         string    `json:"type"`
	AnalysisType string    `json:"analysis_type"`
	PhotoID      flexID    `json:"photo_id"`
	PhotoID1     flexID    `json:"photo_id_1"`
	PhotoID2     flexID    `json:"photo_id_2"`
	OverallScore flexFloat `json:"overall_score"`
	CreatedAt    flexTime  `json:"created_at"`
}

func (h wireHistory) entry() HistoryEntry {
	kind := h.Type
	if kind == "" {
		kind = h.AnalysisType
	}
	var ids []string
	for _, id := range []flexID{h.PhotoID, h.PhotoID1, h.PhotoID2} {
		if id != "" {
			ids = append(ids, string(id))
		}
	}
	if kind == "" {
		kind = "single"
		if len(ids) > 1 {
			kind = "compare"
		}
	}
	return HistoryEntry{
		ID:           string(h.ID),
		Kind:         kind,
		PhotoIDs:     ids,
		OverallScore: h.OverallScore.ptr(),
		CreatedAt:    h.CreatedAt.time(),
	}
}
