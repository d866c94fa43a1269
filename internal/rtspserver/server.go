// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rtspserver publishes source output as RTSP mounts.
//
// A mount's media is created lazily on the first DESCRIBE or SETUP. At that
// point a fresh delivery channel is registered in the mount's slot so the
// source starts forwarding frames, and a consumer goroutine packetizes them
// into RTP. When the last client leaves, the channel is withdrawn from the
// slot and the media is released.
package rtspserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/dart/internal/delivery"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/media"
	"github.com/ManuGH/dart/internal/metrics"
)

var (
	// ErrMountExists is returned when a mount name is registered twice.
	ErrMountExists = errors.New("mount already registered")
	// ErrInvalidMount is returned for a mount without name or slot.
	ErrInvalidMount = errors.New("invalid mount")
	// ErrServerClosed is returned by Start after Close.
	ErrServerClosed = errors.New("rtsp server closed")
)

// Mount describes one published source.
type Mount struct {
	Name  string
	Codec media.Codec
	Slot  *delivery.Slot
	// Auth enables Basic authentication when non-nil.
	Auth *Credentials
}

// Path returns the public path of the mount.
func (m Mount) Path() string {
	return "/" + mountKey(m.Name)
}

// MountStatus is a point-in-time view of a mount.
type MountStatus struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Codec    media.Codec `json:"codec"`
	Sessions int         `json:"sessions"`
	Active   bool        `json:"active"`
	Auth     bool        `json:"auth"`
}

type mount struct {
	Mount
	active   *activeMedia
	sessions int
	pending  map[*gortsplib.ServerConn]struct{}
}

type activeMedia struct {
	stream *gortsplib.ServerStream
	medi   *description.Media
	ch     *delivery.Channel
	cancel context.CancelFunc
	done   chan struct{}
}

type session struct {
	id    string
	mount *mount
}

// Server is the RTSP front of dart.
type Server struct {
	addr   string
	srv    *gortsplib.Server
	logger zerolog.Logger

	mu       sync.Mutex
	mounts   map[string]*mount
	sessions map[*gortsplib.ServerSession]*session
	started  bool
	closed   bool

	releases sync.WaitGroup
}

// New creates a server listening on addr once started.
func New(addr string) *Server {
	s := &Server{
		addr:     addr,
		logger:   log.WithComponent("rtsp"),
		mounts:   make(map[string]*mount),
		sessions: make(map[*gortsplib.ServerSession]*session),
	}
	s.srv = &gortsplib.Server{
		Handler:     s,
		RTSPAddress: addr,
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// AddMount publishes m.
func (s *Server) AddMount(m Mount) error {
	if m.Name == "" || m.Slot == nil {
		return ErrInvalidMount
	}
	if m.Codec == "" {
		m.Codec = media.CodecH264
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := mountKey(m.Name)
	if _, ok := s.mounts[key]; ok {
		return fmt.Errorf("%w: %s", ErrMountExists, m.Name)
	}
	s.mounts[key] = &mount{Mount: m, pending: make(map[*gortsplib.ServerConn]struct{})}
	s.logger.Info().
		Str(log.FieldEvent, "rtsp.mount_added").
		Str(log.FieldMount, m.Path()).
		Str(log.FieldCodec, string(m.Codec)).
		Bool("auth", m.Auth != nil).
		Msg("mount registered")
	return nil
}

// RemoveMount withdraws a mount and releases its media.
func (s *Server) RemoveMount(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mountKey(name)
	m, ok := s.mounts[key]
	if !ok {
		return false
	}
	delete(s.mounts, key)
	s.releaseLocked(m)
	return true
}

// Mounts lists the registered mounts ordered by path.
func (s *Server) Mounts() []MountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MountStatus, 0, len(s.mounts))
	for _, m := range s.mounts {
		out = append(out, MountStatus{
			Name:     m.Name,
			Path:     m.Path(),
			Codec:    m.Codec,
			Sessions: m.sessions,
			Active:   m.active != nil,
			Auth:     m.Auth != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Start opens the listener.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return nil
	}
	if err := s.srv.Start(); err != nil {
		return fmt.Errorf("start rtsp server on %s: %w", s.addr, err)
	}
	s.started = true
	s.logger.Info().
		Str(log.FieldEvent, "rtsp.listening").
		Str(log.FieldListen, s.addr).
		Msg("rtsp server listening")
	return nil
}

// Wait blocks until the listener stops and returns the reason.
func (s *Server) Wait() error {
	return s.srv.Wait()
}

// Run starts the server and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Wait() }()

	select {
	case <-ctx.Done():
		s.Close()
		<-errCh
		return nil
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("rtsp server: %w", err)
	}
}

// Close stops the listener and releases every active mount. It is safe to
// call more than once.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if started {
		s.srv.Close()
	}

	s.mu.Lock()
	for _, m := range s.mounts {
		s.releaseLocked(m)
	}
	s.mu.Unlock()
	s.releases.Wait()
}

// OnConnOpen implements gortsplib.ServerHandlerOnConnOpen.
func (s *Server) OnConnOpen(ctx *gortsplib.ServerHandlerOnConnOpenCtx) {
	s.logger.Debug().
		Str(log.FieldEvent, "rtsp.conn_open").
		Str(log.FieldRemote, ctx.Conn.NetConn().RemoteAddr().String()).
		Msg("connection opened")
}

// OnConnClose implements gortsplib.ServerHandlerOnConnClose.
func (s *Server) OnConnClose(ctx *gortsplib.ServerHandlerOnConnCloseCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.mounts {
		if _, ok := m.pending[ctx.Conn]; !ok {
			continue
		}
		delete(m.pending, ctx.Conn)
		s.maybeReleaseLocked(m)
	}
}

// OnDescribe implements gortsplib.ServerHandlerOnDescribe.
func (s *Server) OnDescribe(ctx *gortsplib.ServerHandlerOnDescribeCtx) (*base.Response, *gortsplib.ServerStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, res := s.resolveLocked(ctx.Path, ctx.Request)
	if res != nil {
		return res, nil, nil
	}
	a, err := s.activateLocked(m)
	if err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "rtsp.activate_failed").
			Str(log.FieldMount, m.Path()).
			Msg("failed to activate mount")
		return &base.Response{StatusCode: base.StatusInternalServerError}, nil, nil
	}
	m.pending[ctx.Conn] = struct{}{}
	return &base.Response{StatusCode: base.StatusOK}, a.stream, nil
}

// OnSetup implements gortsplib.ServerHandlerOnSetup.
func (s *Server) OnSetup(ctx *gortsplib.ServerHandlerOnSetupCtx) (*base.Response, *gortsplib.ServerStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, res := s.resolveLocked(ctx.Path, ctx.Request)
	if res != nil {
		return res, nil, nil
	}
	if sess, ok := s.sessions[ctx.Session]; ok && sess.mount != m {
		return &base.Response{StatusCode: base.StatusBadRequest}, nil, nil
	}
	a, err := s.activateLocked(m)
	if err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "rtsp.activate_failed").
			Str(log.FieldMount, m.Path()).
			Msg("failed to activate mount")
		return &base.Response{StatusCode: base.StatusInternalServerError}, nil, nil
	}

	if _, ok := s.sessions[ctx.Session]; !ok {
		sess := &session{id: uuid.NewString(), mount: m}
		s.sessions[ctx.Session] = sess
		m.sessions++
		metrics.IncRTSPSession(m.Path())
		s.logger.Info().
			Str(log.FieldEvent, "rtsp.session_open").
			Str(log.FieldMount, m.Path()).
			Str(log.FieldSessionID, sess.id).
			Int("sessions", m.sessions).
			Msg("session opened")
	}
	delete(m.pending, ctx.Conn)
	return &base.Response{StatusCode: base.StatusOK}, a.stream, nil
}

// OnPlay implements gortsplib.ServerHandlerOnPlay.
func (s *Server) OnPlay(ctx *gortsplib.ServerHandlerOnPlayCtx) (*base.Response, error) {
	s.mu.Lock()
	sess, ok := s.sessions[ctx.Session]
	s.mu.Unlock()
	if !ok {
		return &base.Response{StatusCode: base.StatusSessionNotFound}, nil
	}
	s.logger.Debug().
		Str(log.FieldEvent, "rtsp.play").
		Str(log.FieldMount, sess.mount.Path()).
		Str(log.FieldSessionID, sess.id).
		Msg("session playing")
	return &base.Response{StatusCode: base.StatusOK}, nil
}

// OnSessionClose implements gortsplib.ServerHandlerOnSessionClose.
func (s *Server) OnSessionClose(ctx *gortsplib.ServerHandlerOnSessionCloseCtx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ctx.Session]
	if !ok {
		return
	}
	delete(s.sessions, ctx.Session)
	m := sess.mount
	m.sessions--
	metrics.DecRTSPSession(m.Path())

	ev := s.logger.Info().
		Str(log.FieldEvent, "rtsp.session_close").
		Str(log.FieldMount, m.Path()).
		Str(log.FieldSessionID, sess.id).
		Int("sessions", m.sessions)
	if ctx.Error != nil {
		ev = ev.AnErr("reason", ctx.Error)
	}
	ev.Msg("session closed")

	s.maybeReleaseLocked(m)
}

// resolveLocked finds the mount for path and checks credentials. A non-nil
// response is the rejection to send.
func (s *Server) resolveLocked(path string, req *base.Request) (*mount, *base.Response) {
	m := s.lookupLocked(path)
	if m == nil {
		return nil, &base.Response{StatusCode: base.StatusNotFound}
	}
	var h base.Header
	if req != nil {
		h = req.Header
	}
	if !authorize(m.Auth, h) {
		metrics.IncRTSPAuthFailure(m.Path())
		s.logger.Warn().
			Str(log.FieldEvent, "rtsp.auth_failed").
			Str(log.FieldMount, m.Path()).
			Msg("rejected unauthenticated request")
		return nil, unauthorized()
	}
	return m, nil
}

// lookupLocked matches path against the mounts. SETUP requests may carry a
// trailing control attribute, which is tried as a fallback.
func (s *Server) lookupLocked(path string) *mount {
	p := normalizePath(path)
	if m, ok := s.mounts[p]; ok {
		return m
	}
	if i := strings.LastIndexByte(p, '/'); i > 0 {
		if m, ok := s.mounts[p[:i]]; ok {
			return m
		}
	}
	return nil
}

func (s *Server) activateLocked(m *mount) (*activeMedia, error) {
	if m.active != nil {
		return m.active, nil
	}

	forma := newFormat(m.Codec)
	pk, err := newPacketizer(forma)
	if err != nil {
		return nil, err
	}
	medi := &description.Media{
		Type:    description.MediaTypeVideo,
		Formats: []format.Format{forma},
	}
	stream := gortsplib.NewServerStream(s.srv, &description.Session{
		Medias: []*description.Media{medi},
	})

	ch := delivery.NewChannel()
	if prev := m.Slot.Set(ch); prev != nil {
		prev.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &activeMedia{
		stream: stream,
		medi:   medi,
		ch:     ch,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active = a
	go s.consume(ctx, m.Path(), a, pk)

	s.logger.Info().
		Str(log.FieldEvent, "rtsp.media_configure").
		Str(log.FieldMount, m.Path()).
		Str(log.FieldCodec, string(m.Codec)).
		Msg("media configured")
	return a, nil
}

func (s *Server) maybeReleaseLocked(m *mount) {
	if m.sessions > 0 || len(m.pending) > 0 {
		return
	}
	s.releaseLocked(m)
}

// releaseLocked withdraws the mount's channel from its slot and tears the
// media down in the background. gortsplib invokes handlers from its own
// goroutines, so the stream is never closed inline.
func (s *Server) releaseLocked(m *mount) {
	a := m.active
	if a == nil {
		return
	}
	m.active = nil
	m.pending = make(map[*gortsplib.ServerConn]struct{})
	m.Slot.CompareAndClear(a.ch)
	a.ch.Close()
	a.cancel()

	s.logger.Info().
		Str(log.FieldEvent, "rtsp.media_release").
		Str(log.FieldMount, m.Path()).
		Msg("media released")

	s.releases.Add(1)
	go func() {
		defer s.releases.Done()
		<-a.done
		a.stream.Close()
	}()
}

func (s *Server) consume(ctx context.Context, mountPath string, a *activeMedia, pk *packetizer) {
	defer close(a.done)
	logger := s.logger.With().Str(log.FieldMount, mountPath).Logger()
	warn := rate.Sometimes{First: 1, Interval: 10 * time.Second}

	err := delivery.Consume(ctx, a.ch, func(f delivery.Frame) error {
		pkts, err := pk.packetize(f.Data)
		if err != nil {
			warn.Do(func() {
				logger.Warn().Err(err).
					Str(log.FieldEvent, "rtsp.packetize_failed").
					Msg("dropping undecodable frame")
			})
			return nil
		}
		for _, pkt := range pkts {
			if err := a.stream.WritePacketRTP(a.medi, pkt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "rtsp.consumer_stopped").
			Msg("media consumer stopped")
	}
}

func mountKey(name string) string {
	return name + "/stream"
}

func normalizePath(p string) string {
	return strings.Trim(p, "/")
}
