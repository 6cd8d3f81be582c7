package server

import "net/http"

// handleListRuns handles GET /runs.
func (s *RunsServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.ListRuns(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, runs)
}

// handleCreateRun handles POST /runs. The response is the only one that
// carries the edit token.
func (s *RunsServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	run, err := s.CreateRun(r.Context(), f)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.logger.Info("run created", "run_id", run.ID, "day", run.DayOfWeek)
	writeData(w, http.StatusCreated, run)
}

// handleGetRun handles GET /runs/{id}?token=.
func (s *RunsServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.GetRun(r.Context(), r.PathValue("id"), r.URL.Query().Get("token"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, run)
}

// handleUpdateRun handles PUT /runs/{id}?token=. A malformed body on a
// missing run or with a bad token reports the lookup failure, not the body.
func (s *RunsServer) handleUpdateRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	token := r.URL.Query().Get("token")

	f, err := decodeFields(w, r)
	if err != nil {
		if _, authErr := s.authorize(r.Context(), id, token); authErr != nil {
			err = authErr
		}
		s.writeEngineError(w, r, err)
		return
	}
	run, err := s.UpdateRun(r.Context(), id, token, f)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, run)
}
