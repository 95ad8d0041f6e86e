package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bhandras/stepwise/internal/entitlement"
	"github.com/bhandras/stepwise/internal/server/api/middleware"
	"github.com/bhandras/stepwise/internal/server/database"
	"github.com/bhandras/stepwise/internal/server/generation"
	"github.com/bhandras/stepwise/internal/tutorial"
	"github.com/bhandras/stepwise/pkg/logger"
)

// TutorialHandler serves the step stream.
type TutorialHandler struct {
	store *database.Store
	gen   generation.Generator
}

// NewTutorialHandler returns a handler generating steps with gen.
func NewTutorialHandler(store *database.Store, gen generation.Generator) *TutorialHandler {
	return &TutorialHandler{store: store, gen: gen}
}

// Stream answers one step request with a text/event-stream: a responseId
// event, unnamed fragment events, then done. A generator failure after the
// stream began ends it without done.
func (h *TutorialHandler) Stream(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	ctx := c.Request.Context()

	params, err := tutorial.ParseRequestParams(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	step, _ := params.StepNumber()

	tier, err := h.store.GetTier(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get tier"})
		return
	}
	if tier != entitlement.TierPlus {
		c.JSON(http.StatusForbidden, gin.H{"error": "tutorials require a PLUS subscription"})
		return
	}

	history, err := h.store.History(ctx, userID, params.ConversationID, params.PreviousResponseID)
	switch {
	case errors.Is(err, database.ErrUnknownResponse):
		logger.Warnf("tutorials: %v, continuing without history", err)
		history = nil
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	req := generation.Request{
		AccountID: userID,
		Params:    params,
		Step:      step,
		History:   history,
	}
	stream, err := h.gen.Stream(ctx, req)
	if err != nil {
		logger.Errorf("tutorials: open generator: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start generation"})
		return
	}
	defer stream.Close()

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	var (
		content    strings.Builder
		responseID string
	)
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warnf("tutorials: generation for %s step %d failed: %v", params.ConversationID, step, err)
			return
		}

		if d.ResponseID != "" && responseID == "" {
			responseID = d.ResponseID
			h.render(c, sse.Event{Event: tutorial.EventResponseID, Data: responseID})
		}
		if d.Text != "" {
			content.WriteString(d.Text)
			h.render(c, sse.Event{Data: eventData(d.Text)})
		}
		c.Writer.Flush()
	}

	if responseID == "" {
		responseID = uuid.NewString()
		h.render(c, sse.Event{Event: tutorial.EventResponseID, Data: responseID})
	}

	// Persist before done so the client's next request can chain onto it.
	err = h.store.AppendTurn(context.WithoutCancel(ctx), database.Turn{
		AccountID:      userID,
		ConversationID: params.ConversationID,
		ResponseID:     responseID,
		Step:           step,
		Mode:           string(params.Mode),
		Prompt:         generation.UserPrompt(req),
		Content:        content.String(),
	})
	if err != nil {
		logger.Warnf("tutorials: %v", err)
	}

	h.render(c, sse.Event{Event: tutorial.EventDone, Data: ""})
	c.Writer.Flush()
}

func (h *TutorialHandler) render(c *gin.Context, ev sse.Event) {
	if err := sse.Encode(c.Writer, ev); err != nil {
		logger.Debugf("tutorials: write event: %v", err)
	}
}

// eventData prepares a fragment for the data field. Decoders strip one space
// after "data:" on every line, so each line gets one; CR would be escaped by
// the encoder and is normalised to LF.
func eventData(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return " " + strings.ReplaceAll(text, "\n", "\n ")
}
