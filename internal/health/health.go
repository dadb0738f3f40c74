// SPDX-License-Identifier: MIT

// Package health provides an HTTP health check endpoint for
// cmd/transcodectl, reporting live task counts and per-task state.
//
// The health check exposes service status at /healthz as JSON, suitable for
// systemd watchdog, load balancer probes, or monitoring systems.
//
// A Prometheus-compatible /metrics endpoint is also served, providing
// per-task state and best-effort resource samples for fleet monitoring
// via Grafana/Prometheus.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// TaskInfo describes the health state of a single in-flight task.
type TaskInfo struct {
	ID              string `json:"id"`
	State           string `json:"state"`
	FileDescriptors int    `json:"file_descriptors,omitempty"`
	ThreadCount     int    `json:"thread_count,omitempty"`
	MemoryBytes     int64  `json:"memory_bytes,omitempty"`
}

// StatusProvider returns the current health status of all live tasks.
// cmd/transcodectl adapts *task.Store to it (see storeStatusProvider
// there).
type StatusProvider interface {
	Tasks() []TaskInfo
}

// Response is the JSON body returned by the health endpoint.
type Response struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Tasks     []TaskInfo `json:"tasks"`
}

// Handler serves the /healthz and /metrics endpoints.
type Handler struct {
	provider StatusProvider
}

// NewHandler creates a health check HTTP handler. Every request is
// healthy as long as the provider itself is reachable: a running
// task is not a failure condition, so /healthz always reports
// "healthy" when the server answers at all.
func NewHandler(provider StatusProvider) *Handler {
	return &Handler{provider: provider}
}

// ServeHTTP implements http.Handler, routing to /healthz and /metrics.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/metrics":
		h.serveMetrics(w, r)
	default:
		h.serveHealth(w, r)
	}
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var tasks []TaskInfo
	if h.provider != nil {
		tasks = h.provider.Tasks()
	}

	resp := Response{
		Status:    "healthy",
		Timestamp: time.Now(),
		Tasks:     tasks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// serveMetrics writes a Prometheus text-format metrics response. This
// implements a minimal subset of the exposition format without any
// external client dependency.
func (h *Handler) serveMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var tasks []TaskInfo
	if h.provider != nil {
		tasks = h.provider.Tasks()
	}

	var sb strings.Builder

	fmt.Fprintln(&sb, "# HELP transcodectl_tasks_active Number of tasks currently tracked by the store.")
	fmt.Fprintln(&sb, "# TYPE transcodectl_tasks_active gauge")
	fmt.Fprintf(&sb, "transcodectl_tasks_active %d\n", len(tasks))

	if len(tasks) > 0 {
		fmt.Fprintln(&sb, "# HELP transcodectl_task_file_descriptors Open file descriptors for the task's subprocess.")
		fmt.Fprintln(&sb, "# TYPE transcodectl_task_file_descriptors gauge")
		for _, tsk := range tasks {
			fmt.Fprintf(&sb, "transcodectl_task_file_descriptors{task=%q,state=%q} %d\n", tsk.ID, tsk.State, tsk.FileDescriptors)
		}

		fmt.Fprintln(&sb, "# HELP transcodectl_task_thread_count Threads reported for the task's subprocess.")
		fmt.Fprintln(&sb, "# TYPE transcodectl_task_thread_count gauge")
		for _, tsk := range tasks {
			fmt.Fprintf(&sb, "transcodectl_task_thread_count{task=%q,state=%q} %d\n", tsk.ID, tsk.State, tsk.ThreadCount)
		}

		fmt.Fprintln(&sb, "# HELP transcodectl_task_memory_bytes Resident memory reported for the task's subprocess.")
		fmt.Fprintln(&sb, "# TYPE transcodectl_task_memory_bytes gauge")
		for _, tsk := range tasks {
			fmt.Fprintf(&sb, "transcodectl_task_memory_bytes{task=%q,state=%q} %d\n", tsk.ID, tsk.State, tsk.MemoryBytes)
		}
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

// ListenAndServe starts the health check HTTP server on the given address.
// It shuts down gracefully when ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	return ListenAndServeReady(ctx, addr, handler, nil)
}

// ListenAndServeReady starts the health check HTTP server and signals
// readiness. The listener is bound synchronously so bind failures
// (e.g. port already in use) are returned immediately rather than
// surfacing only after ctx is cancelled.
func ListenAndServeReady(ctx context.Context, addr string, handler http.Handler, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	if ready != nil {
		close(ready)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
