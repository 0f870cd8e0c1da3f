package prettier

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"formatls/internal/engine"

	"github.com/sourcegraph/jsonrpc2"
)

//go:embed bridge.js
var bridgeScript string

// codeSyntaxError marks errors the bridge raised for unparsable input.
const codeSyntaxError = -32001

// stdio joins the pipes of the node child into one stream.
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdio) Close() error {
	return errors.Join(s.WriteCloser.Close(), s.ReadCloser.Close())
}

// logWriter forwards the bridge's stderr to the log.
type logWriter struct{ dir string }

func (w logWriter) Write(p []byte) (int, error) {
	log.Debugf("[%s] %s", w.dir, p)
	return len(p), nil
}

// bridge is a running node process serving one prettier module.
type bridge struct {
	dir     string
	version string
	conn    *jsonrpc2.Conn
	cmd     *exec.Cmd
}

func startBridge(nodePath, dir, version string) (*bridge, error) {
	cmd := exec.Command(nodePath, "-e", bridgeScript, dir)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open bridge stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open bridge stdout: %w", err)
	}
	cmd.Stderr = logWriter{dir}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", nodePath, err)
	}

	stream := jsonrpc2.NewBufferedStream(stdio{stdout, stdin}, jsonrpc2.VSCodeObjectCodec{})
	b := newBridge(dir, version, stream)
	b.cmd = cmd
	go func() {
		<-b.conn.DisconnectNotify()
		if err := cmd.Wait(); err != nil {
			log.Infof("bridge for %s exited: %v", dir, err)
		}
	}()
	return b, nil
}

func newBridge(dir, version string, stream jsonrpc2.ObjectStream) *bridge {
	return &bridge{
		dir:     dir,
		version: version,
		conn:    jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(refuse)),
	}
}

// refuse answers requests from the bridge, which never sends any.
func refuse(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
}

func (b *bridge) alive() bool {
	select {
	case <-b.conn.DisconnectNotify():
		return false
	default:
		return true
	}
}

func (b *bridge) close() error {
	err := b.conn.Close()
	if errors.Is(err, jsonrpc2.ErrClosed) {
		err = nil
	}
	if b.cmd != nil && b.cmd.Process != nil {
		b.cmd.Process.Kill()
	}
	return err
}

func (b *bridge) call(ctx context.Context, method string, params, result any) error {
	err := b.conn.Call(ctx, method, params, result)
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc2.Error
	if !errors.As(err, &rpcErr) {
		return fmt.Errorf("prettier %s: %w", method, err)
	}
	stack := ""
	if rpcErr.Data != nil {
		var data struct {
			Stack string `json:"stack"`
		}
		if jsonErr := json.Unmarshal(*rpcErr.Data, &data); jsonErr == nil {
			stack = data.Stack
		}
	}
	if rpcErr.Code == codeSyntaxError {
		return &engine.SyntaxError{Message: rpcErr.Message, Err: rpcErr}
	}
	if stack != "" {
		return fmt.Errorf("prettier %s: %s\n%s", method, rpcErr.Message, stack)
	}
	return fmt.Errorf("prettier %s: %w", method, rpcErr)
}
