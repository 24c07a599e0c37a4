package claimapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oakfield-health/strikeplan/pkg/core/services"
)

const dateLayout = "2006-01-02"

type claimablePositionResponse struct {
	PositionID string `json:"position_id"`
	JobCode    string `json:"job_code"`
	Date       string `json:"date"`
	ShiftType  string `json:"shift_type"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	SkillTier  string `json:"skill_tier"`
}

type claimDateGroupResponse struct {
	Date      string                      `json:"date"`
	Positions []claimablePositionResponse `json:"positions"`
}

type claimedSlotResponse struct {
	AssignmentID string `json:"assignment_id"`
	PositionID   string `json:"position_id"`
	Date         string `json:"date"`
	ShiftType    string `json:"shift_type"`
	Status       string `json:"status"`
}

type claimDataResponse struct {
	ScenarioName  string                   `json:"scenario_name"`
	StartDate     string                   `json:"start_date"`
	EndDate       string                   `json:"end_date"`
	ExpiresAt     time.Time                `json:"expires_at"`
	ProviderName  string                   `json:"provider_name"`
	AvailableDays []claimDateGroupResponse `json:"available_days"`
	Claimed       []claimedSlotResponse    `json:"claimed"`
}

func (s *Server) getClaimData(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	data, err := services.GetClaimData(r.Context(), s.store, s.logger, s.fellowJobTypeCode, token)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := claimDataResponse{
		ScenarioName:  data.ScenarioName,
		StartDate:     data.StartDate.Format(dateLayout),
		EndDate:       data.EndDate.Format(dateLayout),
		ExpiresAt:     data.ExpiresAt,
		ProviderName:  data.ProviderName,
		AvailableDays: []claimDateGroupResponse{},
		Claimed:       []claimedSlotResponse{},
	}
	for _, day := range data.AvailableDays {
		group := claimDateGroupResponse{Date: day.Date.Format(dateLayout)}
		for _, pos := range day.Positions {
			group.Positions = append(group.Positions, claimablePositionResponse{
				PositionID: pos.Position.ID,
				JobCode:    pos.Position.JobCode,
				Date:       pos.Position.Date.Format(dateLayout),
				ShiftType:  string(pos.Position.ShiftType),
				StartTime:  pos.Position.StartTime,
				EndTime:    pos.Position.EndTime,
				SkillTier:  string(pos.Tier),
			})
		}
		resp.AvailableDays = append(resp.AvailableDays, group)
	}
	for _, slot := range data.Claimed {
		resp.Claimed = append(resp.Claimed, claimedSlotResponse{
			AssignmentID: slot.AssignmentID,
			PositionID:   slot.PositionID,
			Date:         slot.Date.Format(dateLayout),
			ShiftType:    string(slot.ShiftType),
			Status:       string(slot.Status),
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type claimPositionsRequest struct {
	PositionIDs []string `json:"position_ids"`
}

type claimItemErrorResponse struct {
	PositionID string `json:"position_id"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

type claimPositionsResponse struct {
	Claimed []claimedSlotResponse    `json:"claimed"`
	Errors  []claimItemErrorResponse `json:"errors"`
}

func (s *Server) claimPositions(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req claimPositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, services.Validationf("invalid json"))
		return
	}
	if len(req.PositionIDs) == 0 {
		s.writeError(w, services.Validationf("position_ids must not be empty"))
		return
	}

	result, err := services.ClaimPositions(r.Context(), s.store, s.logger, token, req.PositionIDs)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := claimPositionsResponse{
		Claimed: []claimedSlotResponse{},
		Errors:  []claimItemErrorResponse{},
	}
	for _, a := range result.Claimed {
		resp.Claimed = append(resp.Claimed, claimedSlotResponse{
			AssignmentID: a.ID,
			PositionID:   a.PositionID,
			Status:       string(a.Status),
		})
	}
	for _, item := range result.Errors {
		resp.Errors = append(resp.Errors, claimItemErrorResponse{
			PositionID: item.Ref,
			Kind:       string(item.Kind),
			Message:    item.Message,
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type unclaimRequest struct {
	AssignmentID string `json:"assignment_id"`
}

func (s *Server) unclaimPosition(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req unclaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, services.Validationf("invalid json"))
		return
	}
	if req.AssignmentID == "" {
		s.writeError(w, services.Validationf("assignment_id is required"))
		return
	}

	if err := services.UnclaimPosition(r.Context(), s.store, s.logger, token, req.AssignmentID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusForKind maps the domain error taxonomy onto HTTP statuses.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInvalidState:
		return http.StatusConflict
	case services.KindExpired:
		return http.StatusGone
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		// Unexpected failure: log the detail, return a generic message.
		s.logger.Error("Claim request failed", zap.Error(err))
		s.writeJSON(w, status, errorResponse{Kind: "internal", Message: "something went wrong"})
		return
	}
	s.writeJSON(w, status, errorResponse{Kind: string(kind), Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
