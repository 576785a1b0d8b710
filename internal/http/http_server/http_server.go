package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"chatrelay/internal/http/chathandler"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files
)

type httpServer struct {
	listenPort uint16
	srv        *http.Server
	ln         net.Listener
	wsHandler  gin.HandlerFunc
	chat       *chathandler.Handler
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, wsHandler gin.HandlerFunc, chat *chathandler.Handler) *httpServer {
	h := &httpServer{
		listenPort: listenPort,
		wsHandler:  wsHandler,
		chat:       chat,
		ctx:        ctx,
	}
	// Built up front so a Dispose that lands before Start still stops it.
	h.srv = &http.Server{
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Routes builds the gin engine. Start serves it; tests drive it directly.
func (h *httpServer) Routes() *gin.Engine {
	routerEngine := gin.New()

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))

	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))

	routerEngine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	// websocket endpoint
	routerEngine.GET("/ws", h.wsHandler)

	// REST API
	h.chat.Register(routerEngine)

	return routerEngine
}

// Start serves until Dispose. It returns nil without listening when the
// server context is already done.
func (h *httpServer) Start() error {
	if h.ctx.Err() != nil {
		return nil
	}

	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	err = h.srv.Serve(h.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in‑flight requests to finish. Hijacked websocket
// connections are not tracked here; close them before calling Dispose.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err // e.g. active conns didn’t finish in time
	}
	return nil
}
