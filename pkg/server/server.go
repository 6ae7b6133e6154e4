// Copyright 2024 Expert Hub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/experthub/InverterStarter/pkg/service/controller"
)

// Config for the server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH requests
	SSHPort int
	// HostKeyPath of the SSH host key; created when missing.
	HostKeyPath string
}

// StatusSource yields the state the status endpoint reports.
type StatusSource interface {
	Snapshot() controller.Snapshot
}

// UI hands a Bubble Tea model to each incoming SSH session.
type UI interface {
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// Server exposes the starter over HTTP (metrics, status, pprof) and
// SSH (the remote front panel).
type Server struct {
	Config
	log     zerolog.Logger
	ui      UI
	status  StatusSource
	started time.Time
}

// New configures a new Server.
func New(cfg Config, log zerolog.Logger, ui UI, status StatusSource) (*Server, error) {
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = ".ssh/id_ed25519"
	}
	return &Server{
		Config: cfg,
		log:    log.With().Str("component", "server").Logger(),
		ui:     ui,
		status: status,
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	s.started = time.Now()

	// Prepare HTTP listener
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on address %s: %w", httpAddr, err)
	}

	// Prepare HTTP server
	httpRouter := echo.New()
	httpRouter.HideBanner = true
	httpRouter.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpRouter.GET("/healthz", s.handleHealth)
	httpRouter.GET("/api/status", s.handleStatus)
	httpRouter.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	httpSrv := http.Server{
		Handler: httpRouter,
	}

	// Prepare SSH server.
	// A single front panel at a time; a second session would race the
	// first one on the same physical outputs.
	sessionSem := semaphore.NewWeighted(1)
	limitSessions := func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if !sessionSem.TryAcquire(1) {
				fmt.Fprintln(sess, "Another control session is active.")
				sess.Exit(1)
				return
			}
			defer sessionSem.Release(1)
			next(sess)
		}
	}
	sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
	sshServer, err := wish.NewServer(
		wish.WithAddress(sshAddr),
		wish.WithHostKeyPath(s.HostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(s.ui.Handler),
			limitSessions,
			// The last item in the chain is the first to be called.
			activeterm.Middleware(),
			logging.Middleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("could not start SSH server: %w", err)
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()
	log.Debug().Str("address", sshAddr).Msg("Serving SSH")
	go func() {
		if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to serve SSH server")
		}
		log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
	}()

	// Wait until context closed
	<-ctx.Done()

	log.Info().Msg("Closing servers")
	httpSrv.Shutdown(context.Background())
	sshServer.Shutdown(context.Background())

	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK\n")
}

// statusResponse is the wire shape of /api/status.
type statusResponse struct {
	Screen       string `json:"screen"`
	Profile      string `json:"profile"`
	Energized    bool   `json:"energized"`
	ActiveMode   int    `json:"activeMode"`
	LimitRuntime bool   `json:"limitRuntime"`
	RemainingSec int    `json:"remainingSec"`
	Started      string `json:"started"`
}

func (s *Server) handleStatus(c echo.Context) error {
	snap := s.status.Snapshot()
	return c.JSON(http.StatusOK, statusResponse{
		Screen:       snap.Screen.String(),
		Profile:      snap.Profile.String(),
		Energized:    snap.Energized,
		ActiveMode:   snap.ActiveMode,
		LimitRuntime: snap.LimitRuntime,
		RemainingSec: int(snap.Remaining / time.Second),
		Started:      humanize.Time(s.started),
	})
}
