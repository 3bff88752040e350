// Package router wires the HTTP surface: route registration, request
// binding and the API key middleware. All business logic lives in the
// handler package.
package router

import (
	"context"
	"errors"

	"cv-intake-go/internal/api/handler"
	"cv-intake-go/internal/builder"
	"cv-intake-go/internal/config"
	"cv-intake-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"gorm.io/gorm"
)

// RegisterRoutes attaches all API routes. The health check stays open;
// everything under /api/v1 requires an API key when keys are configured.
func RegisterRoutes(h *server.Hertz, cfg *config.Config,
	cvHandler *handler.CVHandler, builderHandler *handler.BuilderHandler) {

	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if len(cfg.Server.APIKeys) > 0 {
		api.Use(apiKeyMiddleware(cfg.Server.APIKeys))
	}

	api.POST("/cv/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file not found in form data"})
			return
		}

		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "web_upload"
		}
		userID := ctx.PostForm("user_id")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := cvHandler.HandleCVUpload(c, file, fileHeader.Size, fileHeader.Filename, sourceChannel, userID)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/cv/analyze", func(c context.Context, ctx *app.RequestContext) {
		var req struct {
			RawText        string `json:"raw_text"`
			JobDescription string `json:"job_description"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid JSON body"})
			return
		}

		resp, err := cvHandler.HandleAnalyzeText(c, req.RawText, req.JobDescription)
		if err != nil {
			if req.RawText == "" {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/cv/:uuid", func(c context.Context, ctx *app.RequestContext) {
		submissionUUID := ctx.Param("uuid")

		resp, err := cvHandler.HandleGetCV(c, submissionUUID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "submission not found"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/builder/session", func(c context.Context, ctx *app.RequestContext) {
		var req handler.BuilderStartRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid JSON body"})
			return
		}

		resp, err := builderHandler.HandleStartSession(c, req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/builder/session/:id/answer", func(c context.Context, ctx *app.RequestContext) {
		var req handler.BuilderAnswerRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid JSON body"})
			return
		}

		resp, err := builderHandler.HandleAnswer(c, ctx.Param("id"), req)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrSessionNotFound):
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "session not found"})
			case errors.Is(err, builder.ErrSessionComplete):
				ctx.JSON(consts.StatusConflict, utils.H{"error": "session already complete"})
			default:
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			}
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/builder/session/:id", func(c context.Context, ctx *app.RequestContext) {
		resp, err := builderHandler.HandleGetSession(c, ctx.Param("id"))
		if err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "session not found"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.DELETE("/builder/session/:id", func(c context.Context, ctx *app.RequestContext) {
		if err := builderHandler.HandleDeleteSession(c, ctx.Param("id")); err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"status": "deleted"})
	})
}

// apiKeyMiddleware accepts requests carrying one of the configured keys as
// "Authorization: Bearer <key>".
func apiKeyMiddleware(keys []string) app.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}

	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			_, ok := allowed[key]
			return ok, nil
		}),
	)
}
