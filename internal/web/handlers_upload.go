package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/JonMunkholm/badgemerge/internal/merge"
	"github.com/JonMunkholm/badgemerge/internal/sheet"
	"github.com/JonMunkholm/badgemerge/internal/sources"
)

// Multipart field names of the uploaded exports.
const (
	fieldRegistration  = "registration"
	fieldSeating       = "seating"
	fieldQRCodes       = "qr_codes"
	fieldFormResponses = "form_responses"
)

// uploadMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const uploadMemory = 32 << 20

// handleMergeUpload runs the merge over exports uploaded as a multipart
// form instead of the source directory.
func (s *Server) handleMergeUpload(w http.ResponseWriter, r *http.Request) {
	maxFile := s.cfg.Merge.MaxUploadSize
	// Four files plus the form fields.
	r.Body = http.MaxBytesReader(w, r.Body, 4*maxFile+maxJSONBody)

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, fmt.Errorf("upload: request body too large (limit %d bytes per file)", maxFile))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: invalid multipart form: %v", core.ErrInvalidRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var src merge.Sources
	targets := []struct {
		field    string
		dst      **sheet.Table
		required bool
	}{
		{fieldRegistration, &src.Registration, true},
		{fieldSeating, &src.Seating, false},
		{fieldQRCodes, &src.QRCodes, false},
		{fieldFormResponses, &src.FormResponses, false},
	}
	for _, t := range targets {
		tbl, err := s.readUpload(r, t.field, maxFile)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if tbl == nil && t.required {
			s.respondError(w, r, fmt.Errorf("%w: the %s file is required", core.ErrInvalidRequest, t.field))
			return
		}
		*t.dst = tbl
	}

	stats, _ := strconv.ParseBool(r.FormValue("stats"))
	req := core.RunRequest{
		MainEvent:       r.FormValue("main_event"),
		SubEvent:        r.FormValue("sub_event"),
		Timezone:        r.FormValue("timezone"),
		InclusionList:   splitList(r.FormValue("inclusion_list")),
		CreatedOnFilter: r.FormValue("created_on_filter"),
		RuleSet:         r.FormValue("rule_set"),
		Stats:           stats,
		Sources:         &src,
	}

	res, err := s.service.Run(withRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeRunResult(w, r, res)
}

// readUpload parses one uploaded export. A missing field yields nil.
func (s *Server) readUpload(r *http.Request, field string, maxSize int64) (*sheet.Table, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidRequest, field, err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, fmt.Errorf("%s: file too large (%d bytes, limit %d)", header.Filename, header.Size, maxSize)
	}
	if !sources.IsCandidate(header.Filename) {
		return nil, fmt.Errorf("%w: %s: expected an .xlsx or .csv file", core.ErrInvalidRequest, header.Filename)
	}

	s.logger.Debug("reading uploaded export", "field", field, "file", header.Filename, "size", header.Size)
	return sources.ReadReader(header.Filename, file)
}
