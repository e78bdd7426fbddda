package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shibukawa/schemagraph/engine"
	"github.com/shibukawa/schemagraph/graphstore"
	"github.com/shibukawa/schemagraph/tablefilter"
)

type statsResponse struct {
	Stats graphstore.Stats    `json:"stats"`
	Scan  graphstore.ScanInfo `json:"scan"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.Engine() == nil {
		status = "no_graph"
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	tables, err := e.ListTables(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if where := strings.TrimSpace(r.URL.Query().Get("where")); where != "" {
		filter, err := tablefilter.Compile(where)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		tables, err = filter.Apply(tables)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, nonNilSlice(tables))
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	name := r.PathValue("name")

	explanation, found, err := e.ExplainTable(r.Context(), name)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("table not found: %s", name)})
		return
	}

	writeJSON(w, http.StatusOK, explanation)
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	columns, err := e.ListColumns(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if name := strings.TrimSpace(r.URL.Query().Get("table")); name != "" {
		tableID, found, err := e.ResolveTable(r.Context(), name)
		if err != nil {
			s.internalError(w, r, err)
			return
		}

		if !found {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("table not found: %s", name)})
			return
		}

		filtered := columns[:0]
		for _, col := range columns {
			if col.Table == tableID {
				filtered = append(filtered, col)
			}
		}
		columns = filtered
	}

	writeJSON(w, http.StatusOK, nonNilSlice(columns))
}

func (s *Server) handleRelationships(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	relationships, err := e.ListRelationships(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNilSlice(relationships))
}

// handlePath answers either from/to or a comma separated tables list.
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	query := r.URL.Query()

	var (
		result *engine.PathResult
		err    error
	)

	switch {
	case query.Get("tables") != "":
		result, err = e.FindMultiPath(r.Context(), splitList(query.Get("tables")))
	case query.Get("from") != "" && query.Get("to") != "":
		result, err = e.FindPath(r.Context(), query.Get("from"), query.Get("to"))
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "from and to are required"})
		return
	}

	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	query := r.URL.Query()

	tables := splitList(query.Get("tables"))
	if len(tables) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tables is required"})
		return
	}

	selectAll := true
	if raw := query.Get("select_all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid select_all: %q", raw)})
			return
		}
		selectAll = v
	}

	result, err := e.GenerateJoin(r.Context(), tables, selectAll)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, e *engine.Engine) {
	stats, info, err := e.Stats(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{Stats: stats, Scan: info})
}

func splitList(raw string) []string {
	var result []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
