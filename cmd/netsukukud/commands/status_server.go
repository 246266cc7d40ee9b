package commands

import (
	"net"
	"net/http"
	"strconv"

	"github.com/teranos/netsukuku/config"
	"github.com/teranos/netsukuku/engine"
	"github.com/teranos/netsukuku/logger"
)

// serveStatus runs the node's HTTP status/WebSocket server until the
// process exits; errors are logged, not fatal, since the routing daemon
// itself keeps running without it.
func serveStatus(cfg *config.Config, node *engine.Node) {
	addr := net.JoinHostPort("", strconv.Itoa(cfg.Status.Port))
	srv := node.StatusServer()
	logger.Logger.Infow("status server listening", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Mux()); err != nil {
		logger.Logger.Errorw("status server stopped", logger.FieldError, err.Error())
	}
}
