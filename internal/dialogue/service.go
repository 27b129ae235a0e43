package dialogue

import (
	"context"
	"time"
)

// Service describes the booking dialogue as transports see it. The HTTP and
// webchat layers both speak to this interface.
type Service interface {
	StartSession(ctx context.Context) (*StartResponse, error)
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	GetHistory(ctx context.Context, sessionID string) ([]Message, error)
	GetState(ctx context.Context, sessionID string) (State, error)
}

// TurnRequest is a single caller utterance.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Voice     bool   `json:"voice,omitempty"`
}

// StartResponse opens a session with the assistant's greeting.
type StartResponse struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResponse is the assistant's side of one turn.
type TurnResponse struct {
	SessionID   string    `json:"session_id"`
	Reply       string    `json:"reply"`
	State       State     `json:"state"`
	Intent      Intent    `json:"intent,omitempty"`
	BookingCode string    `json:"booking_code,omitempty"`
	Done        bool      `json:"done"`
	Timestamp   time.Time `json:"timestamp"`
}

// EngineService adapts the Engine to the Service interface.
type EngineService struct {
	engine *Engine
}

func NewEngineService(engine *Engine) *EngineService {
	return &EngineService{engine: engine}
}

func (s *EngineService) StartSession(ctx context.Context) (*StartResponse, error) {
	sess, err := s.engine.StartSession(ctx)
	if err != nil {
		return nil, err
	}
	reply := ""
	if len(sess.Messages) > 0 {
		reply = sess.Messages[len(sess.Messages)-1].Content
	}
	return &StartResponse{
		SessionID: sess.ID,
		Reply:     reply,
		State:     sess.State,
		Timestamp: sess.CreatedAt,
	}, nil
}

func (s *EngineService) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	result, err := s.engine.ProcessTurn(ctx, req.SessionID, req.Message, req.Voice)
	if err != nil {
		return nil, err
	}
	return &TurnResponse{
		SessionID:   result.SessionID,
		Reply:       result.Reply,
		State:       result.State,
		Intent:      result.Intent,
		BookingCode: result.BookingCode,
		Done:        result.Done,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func (s *EngineService) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	return s.engine.GetHistory(ctx, sessionID)
}

func (s *EngineService) GetState(ctx context.Context, sessionID string) (State, error) {
	return s.engine.GetState(ctx, sessionID)
}
