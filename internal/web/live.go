package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/oratio-labs/oratio/internal/assess"
	"github.com/oratio-labs/oratio/internal/observe"
)

// liveMessage is one client frame on the live tracking socket.
type liveMessage struct {
	// Type is "chunk", "mark" or "finalize".
	Type string `json:"type"`

	// Words carries the recognised speech for a chunk frame.
	Words []string `json:"words,omitempty"`

	// Index is the word index for a mark frame.
	Index int `json:"index,omitempty"`
}

// liveReply is one server frame on the live tracking socket.
type liveReply struct {
	// Type is "progress", "summary", "ack" or "error".
	Type     string              `json:"type"`
	Progress *assess.Progress    `json:"progress,omitempty"`
	Summary  *assess.LiveSummary `json:"summary,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// handleLive upgrades to a websocket and streams tracking updates for the
// session in the path. Each chunk frame is answered with a progress frame;
// a finalize frame is answered with the summary and a normal close.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	log := observe.Logger(r.Context()).With("session_id", sessionID)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session aborted")

	ctx := r.Context()
	for {
		var msg liveMessage
		if err := readLiveFrame(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				return
			}
			log.Warn("websocket read failed", "err", err)
			return
		}

		switch msg.Type {
		case "chunk":
			prog, err := s.cfg.Assess.Process(ctx, sessionID, msg.Words)
			if err != nil {
				s.closeLive(ctx, conn, log, err)
				return
			}
			if err := writeLiveFrame(ctx, conn, liveReply{Type: "progress", Progress: prog}); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}

		case "mark":
			if err := s.cfg.Assess.MarkCurrent(ctx, sessionID, msg.Index); err != nil {
				s.closeLive(ctx, conn, log, err)
				return
			}
			if err := writeLiveFrame(ctx, conn, liveReply{Type: "ack"}); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}

		case "finalize":
			sum, err := s.cfg.Assess.Finalize(ctx, sessionID)
			if err != nil {
				s.closeLive(ctx, conn, log, err)
				return
			}
			if err := writeLiveFrame(ctx, conn, liveReply{Type: "summary", Summary: sum}); err != nil {
				log.Warn("websocket write failed", "err", err)
				return
			}
			conn.Close(websocket.StatusNormalClosure, "session finalized")
			return

		default:
			s.closeLive(ctx, conn, log, errors.New("web: unknown frame type: "+msg.Type))
			return
		}
	}
}

// closeLive reports err to the client and closes with a policy violation.
func (s *Server) closeLive(ctx context.Context, conn *websocket.Conn, log *slog.Logger, err error) {
	log.Warn("live session error", "err", err)

	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = writeLiveFrame(wctx, conn, liveReply{Type: "error", Error: err.Error()})
	conn.Close(websocket.StatusPolicyViolation, "session error")
}

func readLiveFrame(ctx context.Context, conn *websocket.Conn, msg *liveMessage) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, msg)
}

func writeLiveFrame(ctx context.Context, conn *websocket.Conn, reply liveReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
