package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/blobstack/pkg/volume"
)

// DefaultAddr is the listen address of [Server] when none is set.
const DefaultAddr = "127.0.0.1:8321"

// Server serves a stack as HTML over HTTP until its context is cancelled.
//
// Routes:
//
//	GET /                             every channel, max over z
//	GET /channels/{c}                 one channel, max over z
//	GET /channels/{c}/planes/{z}      one plane of one channel
//	GET /info                         stack dims and dtype as JSON
type Server struct {
	Addr   string
	Logger *log.Logger
	// Ready, when set, receives the bound address once the listener is up.
	Ready chan<- string
}

// Display implements Displayer. It blocks until ctx is done.
func (s *Server) Display(ctx context.Context, stack *volume.Stack, channelAxis int) error {
	if err := check(stack, channelAxis); err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	addr := s.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           Handler(stack),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("serving stack", "url", "http://"+ln.Addr().String())
	if s.Ready != nil {
		s.Ready <- ln.Addr().String()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler serving stack.
func Handler(stack *volume.Stack) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeHTML(w, "blobstack", projections(stack))
	})
	r.Get("/info", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dims":  stack.Dims(),
			"axes":  volume.AxesCZYX,
			"dtype": stack.DType().String(),
		})
	})
	r.Route("/channels/{c}", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			c, ok := channelParam(w, req, stack)
			if !ok {
				return
			}
			writeHTML(w, fmt.Sprintf("channel %d", c), projections(stack)[c:c+1])
		})
		r.Get("/planes/{z}", func(w http.ResponseWriter, req *http.Request) {
			c, ok := channelParam(w, req, stack)
			if !ok {
				return
			}
			sh := stack.Shape()
			z, err := strconv.Atoi(chi.URLParam(req, "z"))
			if err != nil || z < 0 || z >= sh.Z {
				http.Error(w, fmt.Sprintf("plane must be in [0, %d)", sh.Z), http.StatusNotFound)
				return
			}
			im := image2D{
				title: fmt.Sprintf("c%d %s z=%d", c, channelName(c), z),
				w:     sh.X,
				h:     sh.Y,
				pix:   stack.Channel(c).Plane(z),
			}
			writeHTML(w, im.title, []image2D{im})
		})
	})
	return r
}

func channelParam(w http.ResponseWriter, req *http.Request, stack *volume.Stack) (int, bool) {
	c, err := strconv.Atoi(chi.URLParam(req, "c"))
	if err != nil || c < 0 || c >= len(stack.Channels) {
		http.Error(w, fmt.Sprintf("channel must be in [0, %d)", len(stack.Channels)), http.StatusNotFound)
		return 0, false
	}
	return c, true
}

func writeHTML(w http.ResponseWriter, title string, images []image2D) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage(w, title, images); err != nil {
		http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
	}
}
