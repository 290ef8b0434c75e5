package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/cinegrid/pkg/catalog"
	"github.com/Sternrassler/cinegrid/pkg/logging"
	"github.com/Sternrassler/cinegrid/pkg/metrics"
	"github.com/Sternrassler/cinegrid/pkg/pagination"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// requestTimeout bounds the upstream work of one grid request.
const requestTimeout = 30 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the grid HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

func serve(ctx context.Context, c *cli) error {
	logger := logging.NewLogger(logging.ComponentServer)

	a, err := newApp(ctx, c.cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:         c.cfg.Server.Addr,
		Handler:      newRouter(a.service, a.redis, c.cfg.Catalog.PageSize),
		ReadTimeout:  c.cfg.Server.ReadTimeout,
		WriteTimeout: c.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("redis", a.redis != nil).
			Int("page_size", c.cfg.Catalog.PageSize).
			Msg("Starting cinegrid server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(svc *catalog.Service, redisClient *redis.Client, pageSize int) *gin.Engine {
	logger := logging.NewLogger(logging.ComponentServer)

	r := gin.New()
	r.Use(requestID(), accessLog(logger), recovery(logger))

	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(redisClient))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.GET("/tv", gridHandler(svc, catalog.MediaTV, pageSize))
	v1.GET("/movie", gridHandler(svc, catalog.MediaMovie, pageSize))
	v1.GET("/search", gridHandler(svc, catalog.MediaSearch, pageSize))
	v1.GET("/genres/:media", genresHandler(svc))

	return r
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// readyHandler reports readiness. Without Redis the server is always ready.
func readyHandler(redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				c.String(http.StatusServiceUnavailable, "Redis unavailable")
				return
			}
		}
		c.String(http.StatusOK, "OK")
	}
}

func gridHandler(svc *catalog.Service, media catalog.Media, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := c.Request.URL.Query()
		q, err := catalog.ParseQuery(media, params)
		if err != nil {
			writeError(c, err)
			return
		}
		if !params.Has(catalog.ParamSize) {
			q.PageSize = pageSize
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		page, err := svc.Browse(ctx, q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func genresHandler(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		media, err := catalog.ParseMedia(c.Param("media"))
		if err != nil {
			writeError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		genres, err := svc.Genres(ctx, media)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"media": media, "genres": genres})
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, pagination.ErrInvalidPageRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never seen.
		status = 499
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
