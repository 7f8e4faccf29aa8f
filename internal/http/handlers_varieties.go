package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"brownies/internal/core"
	applog "brownies/internal/log"
)

type varietyRow struct {
	ID           int64
	Name         string
	DefaultPrice string
}

func (s *Server) handleListVarieties(w http.ResponseWriter, r *http.Request) {
	varieties, err := s.varieties.ListVarieties(r.Context())
	if err != nil {
		s.fail(w, r, "list varieties", err)
		return
	}
	rows := make([]varietyRow, 0, len(varieties))
	for _, v := range varieties {
		rows = append(rows, varietyRow{
			ID:           v.ID,
			Name:         v.Name,
			DefaultPrice: core.FormatRupees(v.DefaultPrice),
		})
	}
	s.render(w, r, "varieties.html", struct{ Varieties []varietyRow }{Varieties: rows})
}

func (s *Server) handleCreateVariety(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	v, err := parseVarietyForm(r)
	if err != nil {
		s.fail(w, r, "create variety", err)
		return
	}

	id, err := s.varieties.CreateVariety(r.Context(), v)
	if err != nil {
		s.fail(w, r, "create variety", err)
		return
	}

	slog.InfoContext(r.Context(), "Variety created", applog.FieldVarietyID, id, "name", v.Name)
	http.Redirect(w, r, "/varieties", http.StatusSeeOther)
}

func (s *Server) handleEditVarietyForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "edit variety form", err)
		return
	}
	v, err := s.varieties.GetVariety(r.Context(), id)
	if err != nil {
		s.fail(w, r, "edit variety form", err)
		return
	}
	data := struct {
		Title        string
		Action       string
		Name         string
		DefaultPrice string
	}{
		Title:        "Edit variety",
		Action:       "/varieties/" + strconv.FormatInt(id, 10) + "/edit",
		Name:         v.Name,
		DefaultPrice: v.DefaultPrice.StringFixed(2),
	}
	s.render(w, r, "variety_form.html", data)
}

func (s *Server) handleUpdateVariety(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "update variety", err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	v, err := parseVarietyForm(r)
	if err != nil {
		s.fail(w, r, "update variety", err)
		return
	}
	v.ID = id

	if err := s.varieties.UpdateVariety(r.Context(), v); err != nil {
		s.fail(w, r, "update variety", err)
		return
	}

	// Names changed, so cached report labels are stale.
	s.reportCache.Purge()
	slog.InfoContext(r.Context(), "Variety updated", applog.FieldVarietyID, id)
	http.Redirect(w, r, "/varieties", http.StatusSeeOther)
}

func (s *Server) handleDeleteVariety(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, "delete variety", err)
		return
	}

	if err := s.varieties.DeleteVariety(r.Context(), id); err != nil {
		s.fail(w, r, "delete variety", err)
		return
	}

	// Under the cascade policy orders went with the variety.
	s.invalidateAll()
	slog.InfoContext(r.Context(), "Variety deleted", applog.FieldVarietyID, id)
	http.Redirect(w, r, "/varieties", http.StatusSeeOther)
}
