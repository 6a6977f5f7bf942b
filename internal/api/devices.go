package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-energy/internal/audit"
	"github.com/nerrad567/gray-logic-energy/internal/device"
)

// setStateRequest is the body of PUT /devices/{id}/state.
type setStateRequest struct {
	On *bool `json:"on"`
}

// handleListDevices returns all devices in store order.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleListActiveDevices returns the devices that are currently on.
func (s *Server) handleListActiveDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.GetActiveDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list active devices", "error", err)
		writeInternalError(w, "failed to list active devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleSetDeviceState switches a device on or off.
//
// Request body: {"on": true}
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceID(w, r)
	if !ok {
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.On == nil {
		writeBadRequest(w, `"on" is required`)
		return
	}

	on, err := s.registry.ToggleDevice(r.Context(), id, *req.On)
	if err != nil {
		s.writeDeviceError(w, err, id)
		return
	}

	s.auditLog(r, audit.ActionToggle, audit.EntityDevice, strconv.FormatInt(id, 10), map[string]any{
		"on": on,
	})

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_on": on})
}

// deviceID parses the {id} URL parameter, writing a 400 on failure.
func deviceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "device id must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeDeviceError maps registry errors to HTTP responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, "device not found")
		return
	}
	s.logger.Error("device operation failed", "device_id", id, "error", err)
	writeInternalError(w, "device operation failed")
}
