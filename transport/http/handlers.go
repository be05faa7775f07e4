package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/sethdford/process-engine/engine"
)

type handler struct {
	engine *engine.Engine
}

// StartRequest is the body of POST /process/start.
type StartRequest struct {
	DefinitionName string                 `json:"definitionName"`
	Variables      map[string]interface{} `json:"variables"`
}

// IDResponse is returned by the start-process and equivalent endpoints.
type IDResponse struct {
	ID int `json:"id"`
}

// CompleteRequest is the body of the task-completion endpoints.
type CompleteRequest struct {
	Variables map[string]interface{} `json:"variables"`
	Error     string                 `json:"error,omitempty"`
}

func (h *handler) startProcess(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Add("Access-Control-Allow-Origin", "*")

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	def, ok := h.engine.GetDefinition(req.DefinitionName)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown definition %q", req.DefinitionName), http.StatusNotFound)
		return
	}

	pi, err := h.engine.StartProcessInstance(def, req.Variables)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, IDResponse{ID: pi.ID()})
}

func (h *handler) getProcess(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	w.Header().Add("Access-Control-Allow-Origin", "*")

	id, err := strconv.Atoi(p.ByName("id"))
	if err != nil {
		http.Error(w, "invalid process id", http.StatusBadRequest)
		return
	}

	pi, ok := h.engine.GetProcessInstance(id)
	if !ok {
		http.Error(w, "process instance not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, pi.Serialize())
}

func (h *handler) completeTask(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	h.complete(w, r, p, true)
}

func (h *handler) completeTaskByName(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	h.complete(w, r, p, false)
}

func (h *handler) complete(w http.ResponseWriter, r *http.Request, p httprouter.Params, byID bool) {
	w.Header().Add("Access-Control-Allow-Origin", "*")

	id, err := strconv.Atoi(p.ByName("id"))
	if err != nil {
		http.Error(w, "invalid process id", http.StatusBadRequest)
		return
	}

	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var taskErr error
	if req.Error != "" {
		taskErr = errors.New(req.Error)
	}

	if byID {
		taskID, err := strconv.Atoi(p.ByName("taskId"))
		if err != nil {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}
		err = h.engine.CompleteTask(id, taskID, taskErr, req.Variables)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	} else {
		taskName := p.ByName("taskName")
		if err := h.engine.CompleteTaskByName(id, taskName, taskErr, req.Variables); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Add("Access-Control-Allow-Origin", "*")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
