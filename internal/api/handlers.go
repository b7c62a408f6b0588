package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"transbuddy/internal/domain"
	"transbuddy/internal/ports"
	"transbuddy/internal/usecase"
)

// Dictation is the controller surface exposed over HTTP.
type Dictation interface {
	Toggle(ctx context.Context) error
	Start(ctx context.Context) error
	Cancel(ctx context.Context) error
	Status() domain.Status
}

// Settings reads and writes user settings.
type Settings interface {
	Get() (domain.Settings, error)
	Save(update domain.SettingsUpdate) (domain.Settings, error)
}

// Deps are the services behind the control API.
type Deps struct {
	Dictation Dictation
	Settings  Settings
	Devices   ports.DeviceLister
	Backends  func() []domain.BackendOption
}

type handlers struct {
	deps Deps
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.deps.Dictation.Status())
}

func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	h.command(w, h.deps.Dictation.Toggle(r.Context()))
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	h.command(w, h.deps.Dictation.Start(r.Context()))
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	h.command(w, h.deps.Dictation.Cancel(r.Context()))
}

// command reports the outcome of a lifecycle command with the status after it.
func (h *handlers) command(w http.ResponseWriter, err error) {
	var serr *usecase.SessionError
	switch {
	case err == nil:
		WriteJSON(w, http.StatusOK, h.deps.Dictation.Status())
	case errors.As(err, &serr):
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "session failed",
			Code:   string(serr.Code),
			Detail: serr.Error(),
		})
	case errors.Is(err, usecase.ErrTriggerIgnored),
		errors.Is(err, usecase.ErrBusy),
		errors.Is(err, usecase.ErrNoActiveSession),
		errors.Is(err, usecase.ErrCancelled):
		WriteErrorDetail(w, http.StatusConflict, "command rejected", err.Error())
	default:
		WriteErrorDetail(w, http.StatusInternalServerError, "command failed", err.Error())
	}
}

func (h *handlers) audioDevices(w http.ResponseWriter, r *http.Request) {
	if h.deps.Devices == nil {
		WriteJSON(w, http.StatusOK, []domain.AudioDevice{})
		return
	}
	devices, err := h.deps.Devices.InputDevices(r.Context())
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to list audio devices", err.Error())
		return
	}
	if devices == nil {
		devices = []domain.AudioDevice{}
	}
	WriteJSON(w, http.StatusOK, devices)
}

func (h *handlers) getSettings(w http.ResponseWriter, _ *http.Request) {
	settings, err := h.deps.Settings.Get()
	if err != nil {
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to load settings", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, settings.Redacted())
}

func (h *handlers) saveSettings(w http.ResponseWriter, r *http.Request) {
	var update domain.SettingsUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&update); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	saved, err := h.deps.Settings.Save(update)
	if err != nil {
		var serr *usecase.SessionError
		if errors.As(err, &serr) {
			WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid settings", Code: string(serr.Code), Detail: serr.Error()})
			return
		}
		WriteErrorDetail(w, http.StatusInternalServerError, "failed to save settings", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, saved.Redacted())
}

func (h *handlers) backends(w http.ResponseWriter, _ *http.Request) {
	options := []domain.BackendOption{}
	if h.deps.Backends != nil {
		options = h.deps.Backends()
	}
	WriteJSON(w, http.StatusOK, options)
}
