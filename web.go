/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/trexboard/board"
	"github.com/Seednode/trexboard/session"
	"github.com/Seednode/trexboard/store"
	"github.com/Seednode/trexboard/store/sqlite"
	"github.com/Seednode/trexboard/store/supabase"
	"github.com/julienschmidt/httprouter"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("trexboard v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// openScores returns the configured score store, or nil when scores are
// not persisted anywhere.
func openScores(cfg *Config) (store.Store, error) {
	switch cfg.backend {
	case backendSQLite:
		scores, err := sqlite.Open(cfg.database)
		if err != nil {
			return nil, err
		}
		return scores, nil
	case backendSupabase:
		scores, err := supabase.Open(cfg.supabaseURL, cfg.supabaseKey, &http.Client{Timeout: timeout})
		if errors.Is(err, store.ErrUnconfigured) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return scores, nil
	case backendMemory:
		return store.NewMemory(), nil
	default:
		return nil, nil
	}
}

// openNames returns the player name directory and a function releasing it.
func openNames(cfg *Config) (NameDirectory, func() error, error) {
	if cfg.namesDB == "" {
		return newMemoryDirectory(), func() error { return nil }, nil
	}

	names, err := session.OpenBoltNames(cfg.namesDB)
	if err != nil {
		return nil, nil, err
	}

	return names, names.Close, nil
}

// newRouter builds every route served for cfg.
func newRouter(cfg *Config, scores store.Store, names NameDirectory, lobby *Lobby, errs chan<- error) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	var client *board.Client
	if scores != nil {
		client = board.New(board.Direct{Store: scores})
	} else {
		client = board.New(nil)
	}

	registerHome(cfg, mux, scores, errs)

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	registerScoreAPI(cfg, mux, scores, errs)

	registerLive(cfg, mux, lobby, client, names)

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	return mux
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: trexboard v%s", releaseVersion)

	scores, err := openScores(cfg)
	if err != nil {
		return err
	}
	if scores == nil {
		logf(cfg, "START: No score store configured, leaderboard disabled")
	} else {
		defer scores.Close()
		logf(cfg, "START: Using %s score store", cfg.backend)
	}

	names, closeNames, err := openNames(cfg)
	if err != nil {
		return err
	}
	defer closeNames()

	errs := make(chan error, 64)
	go logErrors(ctx, errs)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	lobby := newLobby()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           newRouter(cfg, scores, names, lobby, errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	go func() {
		var err error
		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	lobby.closeAll()

	logf(cfg, "STOP: trexboard v%s", releaseVersion)

	return nil
}
