package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = defaultReadTimeout
	defaultShutdownTimeout = 30 * time.Second

	// inheritedListenerEnv marks a child started by a SIGUSR2 restart.
	inheritedListenerEnv = "BLOG_INHERITED_LISTENER"
	// inheritedListenerFD is the first descriptor after stdin, stdout and stderr.
	inheritedListenerFD = 3
)

// Server is an http.Server that drains on SIGINT/SIGTERM and hands its
// listener to a fresh process on SIGUSR2.
type Server struct {
	*http.Server

	ShutdownTimeout time.Duration

	listener  net.Listener
	inherited bool
	signals   chan os.Signal
	done      chan struct{}
	stopOnce  sync.Once
}

// NewServer creates a Server with the default timeouts.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		ShutdownTimeout: defaultShutdownTimeout,
		inherited:       os.Getenv(inheritedListenerEnv) == "1",
		signals:         make(chan os.Signal, 1),
		done:            make(chan struct{}),
	}
}

// ListenAndServe blocks until the server has been shut down by a signal
// or Serve fails. A clean shutdown returns nil.
func (srv *Server) ListenAndServe() error {
	ln, err := srv.listen()
	if err != nil {
		return err
	}
	return srv.Serve(ln)
}

// Serve runs on an existing listener.
func (srv *Server) Serve(ln net.Listener) error {
	srv.listener = ln
	signal.Notify(srv.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(srv.signals)
	go srv.handleSignals()

	err := srv.Server.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		srv.stopOnce.Do(func() { close(srv.done) })
		return err
	}
	<-srv.done
	return nil
}

// Stop drains in-flight requests and releases Serve. Later calls are no-ops.
func (srv *Server) Stop() {
	srv.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), srv.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			Sugar.Errorw("http server shutdown failed", "err", err)
		} else {
			Sugar.Info("http server stopped")
		}
		close(srv.done)
	})
}

func (srv *Server) listen() (net.Listener, error) {
	if srv.inherited {
		ln, err := net.FileListener(os.NewFile(inheritedListenerFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (srv *Server) handleSignals() {
	for {
		select {
		case <-srv.done:
			return
		case sig := <-srv.signals:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				Sugar.Infow("shutting down", "signal", sig.String())
				srv.Stop()
				return
			case syscall.SIGUSR2:
				pid, err := srv.fork()
				if err != nil {
					Sugar.Errorw("restart failed, still serving", "err", err)
					continue
				}
				Sugar.Infow("restarted, draining old process", "new_pid", pid)
				srv.Stop()
				return
			}
		}
	}
}

// fork starts a copy of this binary that serves on the same socket.
func (srv *Server) fork() (int, error) {
	tcp, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not a TCP listener")
	}
	file, err := tcp.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer file.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, inheritedListenerEnv+"=") {
			continue
		}
		env = append(env, e)
	}
	env = append(env, inheritedListenerEnv+"=1")

	return syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
}

// GraceServer serves handler on addr until SIGINT or SIGTERM.
func GraceServer(addr string, handler http.Handler) error {
	return NewServer(addr, handler).ListenAndServe()
}
