package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/homelink/marketplace/internal/apperr"
	"github.com/homelink/marketplace/internal/http/dto"
	"github.com/homelink/marketplace/internal/middleware"
	"github.com/homelink/marketplace/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DealHandler struct {
	dealService *services.DealService
	log         *zap.Logger
}

func NewDealHandler(dealService *services.DealService, log *zap.Logger) *DealHandler {
	return &DealHandler{dealService: dealService, log: log}
}

// CreateDeal is the REST form of deal creation.
func (h *DealHandler) CreateDeal(c *fiber.Ctx) error {
	// An undecodable body reaches the service as empty input, which still
	// answers Unauthenticated before InvalidArgument.
	var req dto.CreateDealRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.Debug("create deal body rejected", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		req = dto.CreateDealRequest{}
	}

	res, err := h.dealService.CreateDeal(c.UserContext(), middleware.GetCaller(c), toCreateInput(req))
	if err != nil {
		return h.restError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{
		OK:   true,
		Data: dto.CreateDealResponse{DealID: res.DealID.String()},
	})
}

// CallableCreateDeal serves the callable envelope used by the web client:
// {"data":{...}} in, {"result":{...}} or {"error":{"status","message"}} out.
func (h *DealHandler) CallableCreateDeal(c *fiber.Ctx) error {
	var req dto.CallableRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.Debug("callable body rejected", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		req = dto.CallableRequest{}
	}

	res, err := h.dealService.CreateDeal(c.UserContext(), middleware.GetCaller(c), toCreateInput(req.Data))
	if err != nil {
		return h.callableError(c, err)
	}

	return c.JSON(dto.CallableResult{Result: dto.CreateDealResponse{DealID: res.DealID.String()}})
}

func (h *DealHandler) GetDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.restError(c, apperr.New(apperr.InvalidArgument, "invalid deal id"))
	}

	deal, err := h.dealService.GetDeal(c.UserContext(), middleware.GetCaller(c), id)
	if err != nil {
		return h.restError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) GetEscrow(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.restError(c, apperr.New(apperr.InvalidArgument, "invalid deal id"))
	}

	escrow, err := h.dealService.GetEscrow(c.UserContext(), middleware.GetCaller(c), id)
	if err != nil {
		return h.restError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: escrow})
}

func (h *DealHandler) GetDealHistory(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.restError(c, apperr.New(apperr.InvalidArgument, "invalid deal id"))
	}

	entries, err := h.dealService.DealHistory(c.UserContext(), middleware.GetCaller(c), id)
	if err != nil {
		return h.restError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *DealHandler) ListDeals(c *fiber.Ctx) error {
	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	deals, err := h.dealService.ListDeals(c.UserContext(), middleware.GetCaller(c), c.Query("role"), limit, offset)
	if err != nil {
		return h.restError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: deals})
}

func toCreateInput(req dto.CreateDealRequest) services.CreateDealInput {
	return services.CreateDealInput{
		ListingID:      req.ListingID,
		Amount:         parseAmount(req.Amount),
		ConversationID: parseConversationID(req.ConversationID),
	}
}

// parseConversationID keeps strings as they are and any other JSON value as
// its compact text. A missing field or null is nil.
func parseConversationID(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil
	}
	out := buf.String()
	return &out
}

// parseAmount accepts only a JSON number. Strings, booleans, null and a
// missing field all come back nil.
func parseAmount(raw json.RawMessage) *decimal.Decimal {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return nil
	}
	return &d
}

func httpStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated:
		return fiber.StatusUnauthorized
	case apperr.InvalidArgument, apperr.FailedPrecondition:
		return fiber.StatusBadRequest
	case apperr.NotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// publicError returns the kind and the message safe to show the caller.
func publicError(err error) (apperr.Kind, string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Kind, appErr.Message
	}
	return apperr.Internal, "internal error"
}

func (h *DealHandler) restError(c *fiber.Ctx, err error) error {
	kind, msg := publicError(err)
	if kind == apperr.Internal {
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(httpStatus(kind)).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      string(kind),
		RequestID: middleware.GetRequestID(c),
	})
}

func (h *DealHandler) callableError(c *fiber.Ctx, err error) error {
	kind, msg := publicError(err)
	if kind == apperr.Internal {
		h.log.Error("callable failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	}
	return c.Status(httpStatus(kind)).JSON(dto.CallableErrorResponse{
		Error: dto.CallableError{Status: kind.Status(), Message: msg},
	})
}
