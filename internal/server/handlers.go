package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"estimatex/internal"
	"estimatex/internal/dsr"
	"estimatex/internal/pipeline"
	"estimatex/internal/report"
)

type estimateRequest struct {
	PDFData *internal.Document `json:"pdfData"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PDFData == nil {
		s.sendError(w, http.StatusBadRequest, "PDF data is required")
		return
	}

	outcome := s.service.Estimate(r.Context(), *req.PDFData, principal(r))
	message := "Cost estimate calculated successfully"
	if outcome.ExtractedItems == 0 {
		message = "No items found in PDF"
	}
	s.sendSuccess(w, http.StatusOK, outcome, message)
}

// detailedReport augments a stored report with a summary block and the
// category-annotated breakdown.
type detailedReport struct {
	internal.Report
	Summary           reportSummary             `json:"summary"`
	DetailedBreakdown []internal.BreakdownEntry `json:"detailed_breakdown"`
}

type reportSummary struct {
	TotalItems        int     `json:"total_items"`
	MatchedPercentage float64 `json:"matched_percentage"`
	TotalCost         float64 `json:"total_cost"`
	MatchedItems      int     `json:"matched_items"`
	UnmatchedItems    int     `json:"unmatched_items"`
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, err := s.service.Reports().Get(id, principal(r))
	if errors.Is(err, report.ErrNotFound) {
		s.sendError(w, http.StatusNotFound, "Report not found")
		return
	}
	if errors.Is(err, report.ErrForbidden) {
		s.sendError(w, http.StatusForbidden, "You are not authorized to access this report")
		return
	}
	if err != nil {
		s.logger.Error("report retrieval failed", zap.String("report_id", id), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "report retrieval failed")
		return
	}

	annotated := pipeline.AnnotateCategories(rep)
	s.sendSuccess(w, http.StatusOK, detailedReport{
		Report: rep,
		Summary: reportSummary{
			TotalItems:        rep.CostEstimate.TotalItems,
			MatchedPercentage: rep.CostEstimate.MatchPercentage,
			TotalCost:         rep.CostEstimate.TotalCost,
			MatchedItems:      rep.CostEstimate.MatchedItems,
			UnmatchedItems:    rep.CostEstimate.UnmatchedItems,
		},
		DetailedBreakdown: annotated.CostEstimate.Breakdown,
	}, "Detailed report retrieved successfully")
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.store.ListItems(r.Context(),
		r.URL.Query().Get("category"),
		r.URL.Query().Get("search"),
		limit)
	if err != nil {
		s.logger.Error("listing dsr items failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "listing DSR items failed")
		return
	}
	s.sendSuccess(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	}, "DSR items retrieved successfully")
}

// itemPayload is the create/update body; pointers distinguish omitted
// fields from zero values on partial updates.
type itemPayload struct {
	ItemCode           *string  `json:"item_code"`
	Description        *string  `json:"description"`
	Unit               *string  `json:"unit"`
	Rate               *float64 `json:"rate"`
	Category           *string  `json:"category"`
	SubCategory        *string  `json:"sub_category"`
	MaterialCost       *float64 `json:"material_cost"`
	LaborCost          *float64 `json:"labor_cost"`
	EquipmentCost      *float64 `json:"equipment_cost"`
	OverheadPercentage *float64 `json:"overhead_percentage"`
	Notes              *string  `json:"notes"`
	IsActive           *bool    `json:"is_active"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		s.sendError(w, http.StatusForbidden, "admin access required")
		return
	}

	var payload itemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := internal.DSRItem{IsActive: true}
	payload.apply(&item)
	if msg := s.validateItem(item); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.store.CreateItem(r.Context(), item)
	if err != nil {
		s.logger.Error("creating dsr item failed", zap.String("item_code", item.ItemCode), zap.Error(err))
		s.sendError(w, http.StatusBadRequest, "creating DSR item failed")
		return
	}
	s.logger.Info("dsr item created", zap.String("item_code", created.ItemCode), zap.String("user_id", principal(r)))
	s.sendSuccess(w, http.StatusCreated, map[string]any{"item": created}, "DSR item created successfully")
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		s.sendError(w, http.StatusForbidden, "admin access required")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var payload itemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.store.GetItem(r.Context(), id)
	if errors.Is(err, dsr.ErrItemNotFound) {
		s.sendError(w, http.StatusNotFound, "DSR item not found")
		return
	}
	if err != nil {
		s.logger.Error("loading dsr item failed", zap.Int("id", id), zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "loading DSR item failed")
		return
	}

	payload.apply(&item)
	if msg := s.validateItem(item); msg != "" {
		s.sendError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.store.UpdateItem(r.Context(), item); err != nil {
		s.logger.Error("updating dsr item failed", zap.Int("id", id), zap.Error(err))
		s.sendError(w, http.StatusBadRequest, "updating DSR item failed")
		return
	}
	s.logger.Info("dsr item updated", zap.Int("id", id), zap.String("user_id", principal(r)))
	s.sendSuccess(w, http.StatusOK, map[string]any{"item": item}, "DSR item updated successfully")
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.Categories(r.Context())
	if err != nil {
		s.logger.Error("listing categories failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "listing categories failed")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	s.sendSuccess(w, http.StatusOK, map[string]any{"categories": categories}, "Categories retrieved successfully")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.sendSuccess(w, http.StatusOK, map[string]string{"status": "ok"}, "ok")
}

func (p itemPayload) apply(item *internal.DSRItem) {
	if p.ItemCode != nil {
		item.ItemCode = strings.TrimSpace(*p.ItemCode)
	}
	if p.Description != nil {
		item.Description = strings.TrimSpace(*p.Description)
	}
	if p.Unit != nil {
		item.Unit = strings.ToLower(strings.TrimSpace(*p.Unit))
	}
	if p.Rate != nil {
		item.Rate = *p.Rate
	}
	if p.Category != nil {
		item.Category = strings.TrimSpace(*p.Category)
	}
	if p.SubCategory != nil {
		item.SubCategory = strings.TrimSpace(*p.SubCategory)
	}
	if p.MaterialCost != nil {
		item.MaterialCost = *p.MaterialCost
	}
	if p.LaborCost != nil {
		item.LaborCost = *p.LaborCost
	}
	if p.EquipmentCost != nil {
		item.EquipmentCost = *p.EquipmentCost
	}
	if p.OverheadPercentage != nil {
		item.OverheadPercentage = *p.OverheadPercentage
	}
	if p.Notes != nil {
		item.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
}

func (s *Server) validateItem(item internal.DSRItem) string {
	if item.ItemCode == "" {
		return "item_code is required"
	}
	if item.Description == "" {
		return "description is required"
	}
	if item.Unit == "" {
		return "unit is required"
	}
	if !s.knownUnit(item.Unit) {
		return "unknown unit: " + item.Unit
	}
	if item.Rate < 0 {
		return "rate must not be negative"
	}
	return ""
}

func (s *Server) knownUnit(unit string) bool {
	for _, u := range s.vocab.Units {
		if unit == u {
			return true
		}
	}
	return false
}

func principal(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

func isAdmin(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-User-Role")), "admin")
}
