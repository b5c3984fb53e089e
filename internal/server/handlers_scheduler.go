package server

import (
	"net/http"
)

// handleListTasks returns the status of every scheduled task.
func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Scheduler == nil {
		s.errorFrom(w, &ErrUnavailable{Component: "scheduler"})
		return
	}
	s.jsonResponse(w, http.StatusOK, s.deps.Scheduler.GetTaskStatus())
}

func (s *Server) handleEnableTask(w http.ResponseWriter, r *http.Request) {
	s.toggleTask(w, r, true)
}

func (s *Server) handleDisableTask(w http.ResponseWriter, r *http.Request) {
	s.toggleTask(w, r, false)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request, enable bool) {
	if s.deps.Scheduler == nil {
		s.errorFrom(w, &ErrUnavailable{Component: "scheduler"})
		return
	}

	name := r.PathValue("name")
	var err error
	if enable {
		err = s.deps.Scheduler.EnableTask(name)
	} else {
		err = s.deps.Scheduler.DisableTask(name)
	}
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
