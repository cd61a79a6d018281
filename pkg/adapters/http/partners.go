package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

type partnerResponse struct {
	Partner domain.PartnerID `json:"partner"`
	Index   *uint64          `json:"index,omitempty"`
	Member  *bool            `json:"member,omitempty"`
}

// CreatePartner handles POST /partners.
func (s *Server) CreatePartner(w http.ResponseWriter, r *http.Request) {
	id, err := s.Engine.CreatePartner(r.Context(), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusCreated, partnerResponse{Partner: id})
}

// RemovePartner handles DELETE /partners/{id}.
func (s *Server) RemovePartner(w http.ResponseWriter, r *http.Request) {
	id := domain.PartnerID(chi.URLParam(r, "id"))
	if err := s.Engine.RemovePartner(r.Context(), caller(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPartner handles GET /partners/at/{index}.
func (s *Server) GetPartner(w http.ResponseWriter, r *http.Request) {
	index, err := uintParam(r, "index")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	id, err := s.Engine.GetPartner(r.Context(), index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, partnerResponse{Partner: id, Index: &index})
}

// IsPartner handles GET /partners/{id}.
func (s *Server) IsPartner(w http.ResponseWriter, r *http.Request) {
	id := domain.PartnerID(chi.URLParam(r, "id"))
	ok, err := s.Engine.IsPartner(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, partnerResponse{Partner: id, Member: &ok})
}

// GetPartnerTasks handles GET /partners/{id}/tasks.
func (s *Server) GetPartnerTasks(w http.ResponseWriter, r *http.Request) {
	id := domain.PartnerID(chi.URLParam(r, "id"))
	ids, err := s.Engine.GetPartnerTasks(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, map[string]any{"partner": id, "task_ids": ids})
}

// GrantRole handles POST /roles/{role}/{account}.
func (s *Server) GrantRole(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	account := domain.Identity(chi.URLParam(r, "account"))
	if err := s.Engine.GrantRole(r.Context(), caller(r), role, account); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole handles DELETE /roles/{role}/{account}.
func (s *Server) RevokeRole(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	account := domain.Identity(chi.URLParam(r, "account"))
	if err := s.Engine.RevokeRole(r.Context(), caller(r), role, account); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
