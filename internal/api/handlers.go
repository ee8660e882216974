package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/fgeck/pumpkin-control/internal/faults"
	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/fgeck/pumpkin-control/internal/services/gateway"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Handlers holds the HTTP handlers for the gateway routes.
type Handlers struct {
	gw     gateway.Service
	logger zerolog.Logger
}

// NewHandlers creates handlers backed by gw.
func NewHandlers(gw gateway.Service, logger zerolog.Logger) *Handlers {
	return &Handlers{gw: gw, logger: logger}
}

type configRequest struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	Port     int    `json:"port"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type controlRequest struct {
	Action string `json:"action"`
}

type messageResponse struct {
	Message    string `json:"message"`
	Configured bool   `json:"configured"`
}

type connectResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Output  string `json:"output"`
}

type controlResponse struct {
	Status  string            `json:"status"`
	Action  models.Action     `json:"action,omitempty"`
	Message string            `json:"message,omitempty"`
	Result  models.ExecResult `json:"result"`
}

type wakeResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	PacketSent  bool    `json:"packet_sent"`
	TargetReady bool    `json:"target_ready"`
	WaitSeconds float64 `json:"wait_seconds"`
}

type logsResponse struct {
	Logs []models.CommandLogEntry `json:"logs"`
}

// Health reports that the process is serving.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// SaveConfig replaces the stored device credentials.
func (h *Handlers) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.gw.SaveConfig(r.Context(), models.RemoteConfig{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Configuration saved successfully", Configured: true})
}

// GetConfig returns the stored configuration without the password.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.gw.GetConfig(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Connect probes the device.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	result, err := h.gw.Connect(detached(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{Success: true, Message: "Connected successfully", Output: result.Output})
}

// Execute runs a custom command.
func (h *Handlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.gw.Execute(detached(r), req.Command)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Control switches the device named in the path on or off.
func (h *Handlers) Control(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if !h.decode(w, r, &req) {
		return
	}

	device := models.Device(mux.Vars(r)["device"])
	result, err := h.gw.Control(detached(r), device, models.Action(req.Action))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{Status: "success", Action: result.Action, Result: result.Result})
}

// Shutdown powers the device off.
func (h *Handlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	result, err := h.gw.Shutdown(detached(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, controlResponse{Status: "success", Message: "Shutdown command sent", Result: result.Result})
}

// Wake sends a Wake-on-LAN packet.
func (h *Handlers) Wake(w http.ResponseWriter, r *http.Request) {
	result, err := h.gw.Wake(detached(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	msg := "Wake packet sent"
	switch {
	case result.TargetReady:
		msg = "Device is awake"
	case result.Error != nil:
		msg = "Wake packet sent, device not reachable yet"
	}

	writeJSON(w, http.StatusOK, wakeResponse{
		Status:      "success",
		Message:     msg,
		PacketSent:  result.PacketSent,
		TargetReady: result.TargetReady,
		WaitSeconds: result.WaitDuration.Seconds(),
	})
}

// Status reports configuration and connectivity. It always answers 200.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.Status(r.Context()))
}

// Logs lists recent audit entries, newest first. An absent or zero limit
// selects the gateway default.
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, faults.New(faults.KindInvalidRequest, "logs", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.gw.Logs(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Logs: entries})
}

// decode reads a JSON body into v. It writes a 400 and returns false on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		h.writeError(w, r, faults.Wrap(faults.KindInvalidRequest, "decode", "invalid request body", err))
		return false
	}
	return true
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(faults.KindOf(err))
	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("request failed")

	writeDetail(w, status, faults.Detail(err))
}

// detached keeps remote work running when the client goes away. A started
// remote command always completes and is recorded.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
