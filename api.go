package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (b *Bot) api(ctx context.Context, listen string, mux *http.ServeMux, metrics []prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/heap/allocs:bytes|/memory/classes/total:bytes|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(metrics...)
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /api/commands", b.apiCommands)
	mux.HandleFunc("GET /api/status", b.apiStatus)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		b.log.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		b.log.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

type apiCommand struct {
	Name string `json:"name"`
	Help string `json:"help,omitzero"`
}

func (b *Bot) apiCommands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := b.log.With(slog.String("api", "commands"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	w.Header().Set("Content-Type", "application/json")
	vis := b.commands.Visible()
	u := struct {
		Data   []apiCommand `json:"data"`
		Status int          `json:"status"`
	}{
		Data:   make([]apiCommand, len(vis)),
		Status: http.StatusOK,
	}
	for i, e := range vis {
		u.Data[i] = apiCommand{Name: e.Name, Help: e.Help}
	}
	p, err := json.Marshal(&u)
	if err != nil {
		log.ErrorContext(ctx, "couldn't encode response", slog.Any("err", err))
		jsonerror(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := w.Write(p); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

type apiStatus struct {
	Server    string         `json:"server"`
	Nick      string         `json:"nick"`
	Channel   string         `json:"channel"`
	Connected bool           `json:"connected"`
	Joined    bool           `json:"joined"`
	Uptime    string         `json:"uptime"`
	Pending   map[string]int `json:"pending,omitempty"`
	Status    int            `json:"status"`
}

func (b *Bot) apiStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := b.log.With(slog.String("api", "status"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	w.Header().Set("Content-Type", "application/json")
	u := apiStatus{
		Server:    b.cfg.Addr(),
		Nick:      b.cfg.IRC.Nick,
		Channel:   b.channel,
		Connected: b.connected.Load(),
		Joined:    b.joined.Load(),
		Uptime:    time.Since(b.start).Round(time.Second).String(),
		Pending:   maps.Collect(b.lanes.Pending()),
		Status:    http.StatusOK,
	}
	p, err := json.Marshal(&u, json.Deterministic(true))
	if err != nil {
		log.ErrorContext(ctx, "couldn't encode response", slog.Any("err", err))
		jsonerror(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := w.Write(p); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}
