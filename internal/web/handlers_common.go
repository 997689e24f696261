package web

// handlers_common.go holds request parsing and response helpers shared by
// the handlers.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/JonMunkholm/badgemerge/internal/sources"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
// Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	return nil
}

// splitList splits a comma or newline separated form value.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// wantsJSONSummary reports whether the caller asked for the run summary
// instead of the workbook.
func wantsJSONSummary(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "json") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, xlsxContentType)
}

// writeRunResult responds with the merged workbook, or the JSON summary
// when requested.
func (s *Server) writeRunResult(w http.ResponseWriter, r *http.Request, res *core.RunResult) {
	w.Header().Set("X-Run-ID", res.ID)
	w.Header().Set("X-Merge-Rows", strconv.Itoa(res.Rows))

	if wantsJSONSummary(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}

	var buf bytes.Buffer
	if err := sources.WriteXLSX(&buf, res.Table); err != nil {
		s.respondError(w, r, fmt.Errorf("encode workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("workbook write interrupted", "run_id", res.ID, "error", err)
	}
}
