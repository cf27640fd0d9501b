package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fleetlock/internal/command"
	"github.com/nerrad567/fleetlock/internal/device"
)

// SelectRequest is the body of PATCH /devices/{name} and PUT /selection.
type SelectRequest struct {
	Selected *bool `json:"selected"`
}

// LockRequest is the body of PUT /devices/{name}/lock and PUT /selected/lock.
type LockRequest struct {
	Locked *bool `json:"locked"`
}

// handleListDevices returns every device in registration order.
//
// Query parameters:
//   - selected: "true" or "false" to filter on the selection flag
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.controller.ListSelectableDevices()

	if sel := r.URL.Query().Get("selected"); sel != "" {
		want := sel == "true"
		filtered := devices[:0]
		for _, d := range devices {
			if d.Selected == want {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleDeviceStats returns registry aggregates.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Stats())
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	v, err := s.controller.Device(chi.URLParam(r, "name"))
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleUpdateDevice changes the selection flag of one device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Selected == nil {
		writeBadRequest(w, "selected is required")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.controller.SetSelected(name, *req.Selected); err != nil {
		s.writeControlError(w, err)
		return
	}
	s.handleGetDevice(w, r)
}

// handleSetLock records lock intent for one device and submits the matching
// command immediately.
func (s *Server) handleSetLock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Locked == nil {
		writeBadRequest(w, "locked is required")
		return
	}

	name := chi.URLParam(r, "name")
	if err := s.controller.SetDesiredLocked(name, *req.Locked); err != nil {
		s.writeControlError(w, err)
		return
	}
	v, err := s.controller.Device(name)
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

// handleLaunch queues a one-shot launch of variant a or b.
func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	variant := chi.URLParam(r, "variant")
	if err := s.controller.TriggerLaunch(name, variant); err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "device": name, "variant": variant})
}

// handleTerminate queues a one-shot terminate.
func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.controller.TriggerTerminate(name); err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "device": name})
}

// handleSetAllSelected selects or deselects every device.
func (s *Server) handleSetAllSelected(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Selected == nil {
		writeBadRequest(w, "selected is required")
		return
	}

	changed := s.controller.SetAllSelected(*req.Selected)
	writeJSON(w, http.StatusOK, map[string]any{"selected": *req.Selected, "changed": changed})
}

// handleSetLockSelected applies lock intent to every selected device.
func (s *Server) handleSetLockSelected(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Locked == nil {
		writeBadRequest(w, "locked is required")
		return
	}

	updated := s.controller.SetDesiredLockedForSelected(*req.Locked)
	writeJSON(w, http.StatusAccepted, map[string]any{"locked": *req.Locked, "updated": updated})
}

// handleLaunchSelected launches variant on every selected device.
func (s *Server) handleLaunchSelected(w http.ResponseWriter, r *http.Request) {
	variant := chi.URLParam(r, "variant")
	n, err := s.controller.LaunchSelected(variant)
	if err != nil {
		s.writeControlError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"variant": variant, "submitted": n})
}

// handleTerminateSelected terminates on every selected device.
func (s *Server) handleTerminateSelected(w http.ResponseWriter, _ *http.Request) {
	n := s.controller.TerminateSelected()
	writeJSON(w, http.StatusAccepted, map[string]any{"submitted": n})
}

// writeControlError maps controller errors to HTTP responses.
func (s *Server) writeControlError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, command.ErrUnknownVariant):
		writeBadRequest(w, "variant must be a or b")
	case errors.Is(err, command.ErrDispatcherStopped):
		writeUnavailable(w, "dispatcher is stopped")
	default:
		s.logger.Error("control operation failed", "error", err)
		writeInternalError(w, "internal error")
	}
}
