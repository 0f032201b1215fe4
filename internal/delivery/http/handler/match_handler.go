package handler

import (
	"errors"

	"gig-match/internal/delivery/http/dto"
	"gig-match/internal/delivery/http/middleware"
	"gig-match/internal/pkg/response"
	"gig-match/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MatchHandler struct {
	uc usecase.MatchingUsecase
}

func NewMatchHandler(uc usecase.MatchingUsecase) *MatchHandler {
	return &MatchHandler{uc: uc}
}

// RegisterRoutes expects r to sit behind the auth middleware.
func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	jobs := r.Group("/jobs")
	jobs.Post("/:job_id/matches", h.GenerateMatches)
	jobs.Get("/:job_id/matches", h.ListJobMatches)

	providers := r.Group("/providers")
	providers.Get("/:provider_id/matches", h.ListPendingMatches)
	providers.Post("/:provider_id/matches/:match_id/accept", h.AcceptMatch)
	providers.Post("/:provider_id/matches/:match_id/decline", h.DeclineMatch)
}

func (h *MatchHandler) GenerateMatches(c fiber.Ctx) error {
	jobID, err := h.authorizedJob(c)
	if err != nil {
		return err
	}

	ms, err := h.uc.GenerateForJob(c.Context(), jobID)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusCreated, response.MessageCreated, dto.NewMatchListResponse(ms))
}

func (h *MatchHandler) ListJobMatches(c fiber.Ctx) error {
	jobID, err := h.authorizedJob(c)
	if err != nil {
		return err
	}

	ms, err := h.uc.MatchesForJob(c.Context(), jobID)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchListResponse(ms))
}

func (h *MatchHandler) ListPendingMatches(c fiber.Ctx) error {
	providerID, err := h.authorizedProvider(c)
	if err != nil {
		return err
	}

	ms, err := h.uc.PendingForProvider(c.Context(), providerID)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchListResponse(ms))
}

func (h *MatchHandler) AcceptMatch(c fiber.Ctx) error {
	providerID, matchID, err := h.providerMatch(c)
	if err != nil {
		return err
	}

	m, err := h.uc.Accept(c.Context(), matchID, providerID)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, "Match accepted", dto.NewMatchResponse(m))
}

func (h *MatchHandler) DeclineMatch(c fiber.Ctx) error {
	providerID, matchID, err := h.providerMatch(c)
	if err != nil {
		return err
	}

	m, err := h.uc.Decline(c.Context(), matchID, providerID)
	if err != nil {
		return mapMatchingError(err)
	}
	return response.Success(c, fiber.StatusOK, "Match declined", dto.NewMatchResponse(m))
}

func (h *MatchHandler) authorizedJob(c fiber.Ctx) (uuid.UUID, error) {
	userID, err := currentUser(c)
	if err != nil {
		return uuid.Nil, err
	}
	jobID, err := pathUUID(c, "job_id")
	if err != nil {
		return uuid.Nil, err
	}
	if err := h.uc.AuthorizeRequester(c.Context(), jobID, userID); err != nil {
		return uuid.Nil, mapMatchingError(err)
	}
	return jobID, nil
}

func (h *MatchHandler) authorizedProvider(c fiber.Ctx) (uuid.UUID, error) {
	userID, err := currentUser(c)
	if err != nil {
		return uuid.Nil, err
	}
	providerID, err := pathUUID(c, "provider_id")
	if err != nil {
		return uuid.Nil, err
	}
	if err := h.uc.AuthorizeProvider(c.Context(), providerID, userID); err != nil {
		return uuid.Nil, mapMatchingError(err)
	}
	return providerID, nil
}

func (h *MatchHandler) providerMatch(c fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	providerID, err := h.authorizedProvider(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	matchID, err := pathUUID(c, "match_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return providerID, matchID, nil
}

func currentUser(c fiber.Ctx) (uuid.UUID, error) {
	userID, ok := c.Locals(middleware.CtxUserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusUnauthorized, "Unauthorized", nil, nil)
	}
	return userID, nil
}

func pathUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Invalid "+name, nil, err)
	}
	return id, nil
}

func mapMatchingError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, usecase.ErrMatchNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Match not found", nil, err).WithCode("match_not_found")
	case errors.Is(err, usecase.ErrProviderNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Provider not found", nil, err).WithCode("provider_not_found")
	case errors.Is(err, usecase.ErrJobNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Job not found", nil, err).WithCode("job_not_found")
	case errors.Is(err, usecase.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, response.MessageNotFound, nil, err)

	case errors.Is(err, usecase.ErrUnauthorized):
		return middleware.NewAppError(fiber.StatusForbidden, response.MessageForbidden, nil, err).WithCode("forbidden")

	case errors.Is(err, usecase.ErrMatchNotPending):
		return middleware.NewAppError(fiber.StatusConflict, "Match is no longer pending", nil, err).WithCode("match_not_pending")
	case errors.Is(err, usecase.ErrJobAlreadyAssigned):
		return middleware.NewAppError(fiber.StatusConflict, "Job already has an accepted match", nil, err).WithCode("job_already_assigned")
	case errors.Is(err, usecase.ErrJobNotAssignable):
		return middleware.NewAppError(fiber.StatusConflict, "Job cannot be assigned", nil, err).WithCode("job_not_assignable")
	case errors.Is(err, usecase.ErrJobBusy):
		return middleware.NewAppError(fiber.StatusConflict, "Job is being accepted by another provider", nil, err).WithCode("job_busy")
	case errors.Is(err, usecase.ErrInvalidState):
		return middleware.NewAppError(fiber.StatusConflict, response.MessageConflict, nil, err)

	case errors.Is(err, usecase.ErrExpired):
		return middleware.NewAppError(fiber.StatusConflict, "Match has expired", nil, err).WithCode("match_expired")

	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
