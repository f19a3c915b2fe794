// internal/models/models.go
package models

import (
	"fmt"
	"strconv"
	"time"
)

type BodyPart string

const (
	BodyPartFull  BodyPart = "full"
	BodyPartUpper BodyPart = "upper"
	BodyPartLower BodyPart = "lower"
)

// ParseBodyPart maps an empty tag to BodyPartFull and rejects anything outside the fixed set.
func ParseBodyPart(s string) (BodyPart, error) {
	switch BodyPart(s) {
	case "":
		return BodyPartFull, nil
	case BodyPartFull, BodyPartUpper, BodyPartLower:
		return BodyPart(s), nil
	}
	return "", fmt.Errorf("unknown body part %q", s)
}

// LocalPhoto is a record of the on-device object cache. It is never updated in place.
type LocalPhoto struct {
	ID        int64     `json:"id"`
	Blob      []byte    `json:"-"`
	FileName  string    `json:"file_name"`
	BodyPart  BodyPart  `json:"body_part"`
	SessionID string    `json:"session_id"`
	TakenAt   time.Time `json:"taken_at"`
	MimeType  string    `json:"mime_type"`
	// DisplayURL is set only when a display handle was acquired for the record.
	DisplayURL string `json:"display_url,omitempty"`
}

// RemotePhoto is a photo as listed by the remote service; read-only on this side.
type RemotePhoto struct {
	ID       string    `json:"id"`
	PhotoURL string    `json:"photo_url"`
	BodyPart BodyPart  `json:"body_part"`
	TakenAt  time.Time `json:"taken_at"`
}

type Source string

const (
	SourceLocal  Source = "local"
	SourceServer Source = "server"
)

// GalleryItem is the common shape both photo sources are merged into.
type GalleryItem struct {
	Key        string    `json:"key"`
	Source     Source    `json:"source"`
	ID         string    `json:"id"`
	DisplayURL string    `json:"display_url"`
	BodyPart   BodyPart  `json:"body_part"`
	TakenAt    time.Time `json:"taken_at"`
	SessionID  string    `json:"session_id,omitempty"`
}

func ItemKey(source Source, id string) string {
	return string(source) + ":" + id
}

func FromLocal(p LocalPhoto) GalleryItem {
	id := strconv.FormatInt(p.ID, 10)
	return GalleryItem{
		Key:        ItemKey(SourceLocal, id),
		Source:     SourceLocal,
		ID:         id,
		DisplayURL: p.DisplayURL,
		BodyPart:   p.BodyPart,
		TakenAt:    p.TakenAt,
		SessionID:  p.SessionID,
	}
}

func FromRemote(p RemotePhoto) GalleryItem {
	return GalleryItem{
		Key:        ItemKey(SourceServer, p.ID),
		Source:     SourceServer,
		ID:         p.ID,
		DisplayURL: p.PhotoURL,
		BodyPart:   p.BodyPart,
		TakenAt:    p.TakenAt,
	}
}
