package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bupple-inc/ai-engine/core/engine"
	"github.com/bupple-inc/ai-engine/providers/ai"
	"github.com/bupple-inc/ai-engine/providers/memory"
)

// chatRequest is the body of POST /v1/chat/:driver[/stream].
type chatRequest struct {
	Messages []ai.Message `json:"messages"`
	Options  ai.Options   `json:"options,omitempty"`

	// Memory, when set, prepends the stored conversation to Messages and
	// appends Messages plus the reply to it afterwards.
	Memory *scopeRequest `json:"memory,omitempty"`
}

type scopeRequest struct {
	ParentClass string `json:"parent_class"`
	ParentID    string `json:"parent_id"`
}

// historyRequest is the body of POST /v1/history/:driver/:class/:id.
type historyRequest struct {
	Role      ai.MessageRole `json:"role"`
	Content   string         `json:"content"`
	Type      ai.ContentType `json:"type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	chat, history, messages, err := s.prepareChat(c, req)
	if err != nil {
		return err
	}

	response, err := chat.Send(ctx, messages, req.Options)
	if err != nil {
		return toHTTPError(err)
	}

	if history != nil {
		if err := s.remember(c, history, req.Messages, response.Content); err != nil {
			return toHTTPError(err)
		}
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleChatStream(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	chat, history, messages, err := s.prepareChat(c, req)
	if err != nil {
		return err
	}

	stream, err := chat.Stream(ctx, messages, req.Options)
	if err != nil {
		return toHTTPError(err)
	}

	// From here on the status line is written; failures go into the stream.
	response, err := engine.PipeStream(s.engine.SSE(c.Response()), stream)
	if err != nil {
		s.logger.WarnContext(ctx, "stream ended with error", "driver", c.Param("driver"), "error", err.Error())
		return nil
	}

	if history != nil {
		if err := s.remember(c, history, req.Messages, response.Content); err != nil {
			s.logger.ErrorContext(ctx, "failed to store streamed reply", "error", err.Error())
		}
	}
	return nil
}

// prepareChat resolves the chat driver and, when the request names a memory
// scope, the scoped memory driver and the full message list.
func (s *Server) prepareChat(c echo.Context, req chatRequest) (ai.ChatDriver, *memory.Driver, []ai.Message, error) {
	if len(req.Messages) == 0 && req.Memory == nil {
		return nil, nil, nil, badRequest("messages must not be empty")
	}

	chat, err := s.engine.Chat(c.Param("driver"))
	if err != nil {
		return nil, nil, nil, toHTTPError(err)
	}
	if req.Memory == nil {
		return chat, nil, req.Messages, nil
	}

	history, err := s.engine.MemoryDriver(c.Param("driver"))
	if err != nil {
		return nil, nil, nil, toHTTPError(err)
	}
	history = history.WithParent(req.Memory.ParentClass, req.Memory.ParentID)

	stored, err := history.History(c.Request().Context())
	if err != nil {
		return nil, nil, nil, toHTTPError(err)
	}
	messages := append(stored, req.Messages...)
	if len(messages) == 0 {
		return nil, nil, nil, badRequest("messages must not be empty")
	}
	return chat, history, messages, nil
}

func (s *Server) remember(c echo.Context, history *memory.Driver, sent []ai.Message, reply string) error {
	ctx := c.Request().Context()
	for _, m := range sent {
		opts := []memory.AddOption{memory.WithType(m.Type)}
		if len(m.Metadata) > 0 {
			opts = append(opts, memory.WithMetadata(m.Metadata))
		}
		if err := history.AddMessage(ctx, m.Role, m.Content, opts...); err != nil {
			return err
		}
	}
	return history.AddAssistantMessage(ctx, reply)
}

func (s *Server) scopedMemory(c echo.Context) (*memory.Driver, error) {
	history, err := s.engine.MemoryDriver(c.Param("driver"))
	if err != nil {
		return nil, toHTTPError(err)
	}
	return history.WithParent(c.Param("class"), c.Param("id")), nil
}

// handleHistoryList returns the stored conversation in the driver's native
// shape, or as generic messages with ?format=generic.
func (s *Server) handleHistoryList(c echo.Context) error {
	history, err := s.scopedMemory(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if c.QueryParam("format") == "generic" {
		messages, err := history.History(ctx)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"driver": history.Provider(), "messages": messages})
	}

	messages, err := history.Messages(ctx)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"driver": history.Provider(), "messages": messages})
}

func (s *Server) handleHistoryAdd(c echo.Context) error {
	var req historyRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	switch req.Role {
	case ai.RoleUser, ai.RoleAssistant, ai.RoleSystem, ai.RoleModel:
	default:
		return badRequest("role must be one of system, user, assistant")
	}

	history, err := s.scopedMemory(c)
	if err != nil {
		return err
	}

	opts := []memory.AddOption{memory.WithType(req.Type)}
	if len(req.Metadata) > 0 {
		opts = append(opts, memory.WithMetadata(req.Metadata))
	}
	if req.MessageID != "" {
		opts = append(opts, memory.WithMessageID(req.MessageID))
	}
	if err := history.AddMessage(c.Request().Context(), req.Role, req.Content, opts...); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusCreated)
}

func (s *Server) handleHistoryClear(c echo.Context) error {
	history, err := s.scopedMemory(c)
	if err != nil {
		return err
	}
	if err := history.Clear(c.Request().Context()); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
