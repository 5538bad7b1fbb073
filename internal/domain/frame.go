package domain

import (
	"encoding/json"
	"time"
)

// FrameKind identifies the shape of an inbound client frame.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameAuth
	FrameLoadMore
	FrameText
	FrameAttachment
)

// Frame is an inbound client frame, decoded and classified exactly once at the
// protocol boundary. Only the fields relevant to Kind are populated.
type Frame struct {
	Kind     FrameKind
	UserID   int64
	Text     string
	File     string // base64 blob, optionally with a data-URI header
	Filename string
}

// wireFrame covers every field a client may send; pointers distinguish an
// absent field from a zero value.
type wireFrame struct {
	UserID   *int64  `json:"userId"`
	Text     *string `json:"text"`
	File     *string `json:"file"`
	Filename *string `json:"filename"`
	LoadMore *bool   `json:"loadMore"`
}

// DecodeFrame classifies raw into exactly one frame kind. Precedence follows
// the protocol: a load-more request wins over any other field, then an
// attachment (file + filename), then text, then the auth frame's userId.
// Unparseable input and unrecognized shapes yield FrameUnknown.
func DecodeFrame(raw []byte) Frame {
	var w wireFrame
	if err := json.Unmarshal(raw, &w); err != nil {
		return Frame{Kind: FrameUnknown}
	}
	switch {
	case w.LoadMore != nil && *w.LoadMore:
		return Frame{Kind: FrameLoadMore}
	case w.File != nil && w.Filename != nil && *w.File != "" && *w.Filename != "":
		return Frame{Kind: FrameAttachment, File: *w.File, Filename: *w.Filename}
	case w.Text != nil:
		return Frame{Kind: FrameText, Text: *w.Text}
	case w.UserID != nil:
		return Frame{Kind: FrameAuth, UserID: *w.UserID}
	default:
		return Frame{Kind: FrameUnknown}
	}
}

// Event is the frame sent to clients for both history replay and live
// broadcast.
type Event struct {
	Sender    int64     `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	IsPicture bool      `json:"is_picture"`
}

// EventFromMessage projects a persisted message onto its wire shape.
func EventFromMessage(m Message) Event {
	return Event{
		Sender:    m.Sender,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		IsPicture: m.IsPicture,
	}
}

// Notice carries protocol information that is not a chat message.
type Notice struct {
	Info string `json:"info"`
}

// NoMoreMessages is sent when a load-more request runs past the oldest page.
const NoMoreMessages = "no more messages"

// Encode serializes a value to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
