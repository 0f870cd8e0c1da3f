package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"
	"github.com/tliron/glsp"
)

// caller sends requests to the connected client.
type caller interface {
	Call(ctx context.Context, method string, params, result any, opts ...jsonrpc2.CallOption) error
}

// Run serves one of the "stdio", "tcp" or "websocket" transports.
func (s *Server) Run(transport, address string) error {
	ctx := context.Background()
	switch transport {
	case "", "stdio":
		log.Info("reading from stdin, writing to stdout")
		conn := s.Serve(ctx, jsonrpc2.NewBufferedStream(stdio{}, jsonrpc2.VSCodeObjectCodec{}))
		<-conn.DisconnectNotify()
		return nil

	case "tcp":
		listener, err := net.Listen("tcp", address)
		if err != nil {
			return err
		}
		defer listener.Close()
		log.Infof("listening for TCP connections on %s", address)
		// One client at a time: the session belongs to whoever initialized.
		for {
			c, err := listener.Accept()
			if err != nil {
				return err
			}
			log.Infof("client connected from %s", c.RemoteAddr())
			conn := s.Serve(ctx, jsonrpc2.NewBufferedStream(c, jsonrpc2.VSCodeObjectCodec{}))
			<-conn.DisconnectNotify()
			log.Infof("client %s disconnected", c.RemoteAddr())
		}

	case "websocket":
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			c, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				log.Warningf("websocket upgrade: %v", err)
				return
			}
			defer c.Close()
			log.Infof("websocket client connected from %s", r.RemoteAddr)
			conn := s.Serve(r.Context(), wsjsonrpc2.NewObjectStream(c))
			<-conn.DisconnectNotify()
		})
		log.Infof("listening for websocket connections on %s", address)
		return http.ListenAndServe(address, mux)
	}
	return fmt.Errorf("unknown transport %q", transport)
}

// Serve answers messages arriving on stream until either side closes it.
// Notifications are handled in arrival order on the read loop so document
// changes apply in sequence. Requests get their own goroutine, which leaves
// the read loop free to receive the client's answers to server requests.
func (s *Server) Serve(ctx context.Context, stream jsonrpc2.ObjectStream) *jsonrpc2.Conn {
	h := jsonrpc2.HandlerWithError(s.handle)
	return jsonrpc2.NewConn(ctx, stream, dispatcher{
		notifications: h,
		requests:      jsonrpc2.AsyncHandler(h),
	})
}

type dispatcher struct {
	notifications jsonrpc2.Handler
	requests      jsonrpc2.Handler
}

func (d dispatcher) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		d.notifications.Handle(ctx, conn, req)
	} else {
		d.requests.Handle(ctx, conn, req)
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "initialize":
		s.mu.Lock()
		s.client = conn
		s.mu.Unlock()
	case "exit":
		log.Info("client asked to exit")
		if err := conn.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
			log.Warningf("closing connection: %v", err)
		}
		return nil, nil
	}

	glspContext := glsp.Context{
		Method: req.Method,
		Notify: func(method string, params any) {
			if err := conn.Notify(ctx, method, params); err != nil {
				log.Errorf("notify %s: %v", method, err)
			}
		},
		Call: func(method string, params, result any) {
			if err := conn.Call(ctx, method, params, result); err != nil {
				log.Errorf("call %s: %v", method, err)
			}
		},
	}
	if req.Params != nil {
		glspContext.Params = *req.Params
	}

	result, validMethod, validParams, err := s.handler.Handle(&glspContext)
	switch {
	case !validMethod:
		if req.Notif {
			log.Debugf("ignoring notification %s", req.Method)
			return nil, nil
		}
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		}
	case !validParams:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeInvalidParams,
			Message: fmt.Sprintf("invalid params for %s", req.Method),
		}
	case err != nil:
		if req.Notif {
			log.Errorf("%s: %v", req.Method, err)
			return nil, nil
		}
		return nil, rpcError(err)
	}
	return result, nil
}

// rpcError keeps the code of a *jsonrpc2.Error anywhere in err's chain and
// reports everything else as an internal error.
func rpcError(err error) *jsonrpc2.Error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}
