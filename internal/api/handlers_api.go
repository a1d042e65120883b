package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/lox/wattpipe/internal/models"
)

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// handleRecords is the read path: all canonical records for one site.
// The site_id guard runs before any store access.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site_id")
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "missing required parameter: site_id")
		return
	}

	records, err := s.store.QueryBySite(siteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.SiteRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.store.GetAnomalousRecords(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []models.SiteRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleIngestHealth(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = n
	}

	summaries, err := s.store.GetBatchHealth(days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleBatches ingests an inline JSON array of raw readings. Record-level
// skips and gateway failures still produce a 200 completion summary; only a
// malformed document is a client error.
func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var readings []models.RawReading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		writeError(w, http.StatusBadRequest, "malformed batch: "+err.Error())
		return
	}

	run, err := s.store.StartBatchRun("api", nil)
	if err != nil {
		log.Printf("api: start batch run: %v", err)
	}

	result := s.processor.ProcessBatch(r.Context(), "api", readings)

	if run != nil {
		run.Success = true
		run.RecordsTotal = nullInt(result.Total)
		run.RecordsStored = nullInt(result.Stored)
		run.RecordsSkipped = nullInt(result.Skipped)
		run.RecordsFailed = nullInt(len(result.Failed))
		if err := s.store.CompleteBatchRun(run); err != nil {
			log.Printf("api: complete batch run: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// storageEvent mirrors the notification a bucket emits when batch objects
// arrive.
type storageEvent struct {
	Records []struct {
		Bucket string `json:"bucket"`
		Key    string `json:"key"`
	} `json:"records"`
}

type objectOutcome struct {
	Key    string              `json:"key"`
	Result *models.BatchResult `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// handleEvents processes a storage-upload event naming newly arrived batch
// objects. Per-object fetch or decode failures are reported in the summary;
// the response is still 200 so the eventing layer does not redeliver a
// half-processed event forever.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.objects == nil || s.ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "no object store configured")
		return
	}

	var event storageEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "malformed event: "+err.Error())
		return
	}
	if len(event.Records) == 0 {
		writeError(w, http.StatusBadRequest, "event names no objects")
		return
	}

	var outcomes []objectOutcome
	for _, obj := range event.Records {
		result, err := s.ingester.ProcessObject(r.Context(), s.objects, obj.Key)
		outcome := objectOutcome{Key: obj.Key}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.Result = &result
		}
		outcomes = append(outcomes, outcome)
	}

	writeJSON(w, http.StatusOK, map[string]any{"objects": outcomes})
}
