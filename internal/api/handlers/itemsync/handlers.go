// Package itemsync exposes the item-sync HTTP endpoint (§6): it decodes
// an item hash from the request body, applies it through the updater,
// and reports the result as a structured JSON response.
package itemsync

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	apierrors "github.com/notesync/transition-core/internal/api/errors"
	"github.com/notesync/transition-core/internal/domain"
	synclogic "github.com/notesync/transition-core/internal/itemsync"
	"github.com/notesync/transition-core/internal/repository"
)

// requestValidator performs struct-tag validation on decoded request
// DTOs ahead of the domain validation chain in synclogic, catching
// malformed input with field-level messages before it reaches the
// updater.
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("contenttype", validateContentType)
	v.RegisterStructValidation(validateCreationTime, itemHashRequest{})
	return v
}

func validateContentType(fl validator.FieldLevel) bool {
	return domain.ValidContentType(fl.Field().String())
}

// validateCreationTime enforces the required-one-of rule between the
// numeric and string creation-time fields (§4.6's HasCreationTime
// check), surfaced here as an early struct-tag-level failure.
func validateCreationTime(sl validator.StructLevel) {
	req := sl.Current().Interface().(itemHashRequest)
	if req.CreatedAtTimestamp == nil && req.CreatedAt == nil {
		sl.ReportError(req.CreatedAtTimestamp, "CreatedAtTimestamp", "CreatedAtTimestamp", "required_without_all", "CreatedAt")
	}
}

// Handlers provides the HTTP handler for the item-sync endpoint.
type Handlers struct {
	items   repository.ItemRepository
	updater *synclogic.Updater
	logger  *slog.Logger
}

// NewHandlers constructs the item-sync handlers.
func NewHandlers(items repository.ItemRepository, updater *synclogic.Updater, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{items: items, updater: updater, logger: log}
}

// itemHashRequest mirrors domain.ItemHash with JSON tags matching the
// wire format clients submit.
type itemHashRequest struct {
	ItemID      string  `json:"uuid" validate:"required,uuid"`
	Content     *string `json:"content"`
	ContentType string  `json:"content_type" validate:"required,contenttype"`
	EncItemKey  *string `json:"enc_item_key"`
	AuthHash    *string `json:"auth_hash"`
	ItemsKeyID  *string `json:"items_key_id"`
	DuplicateOf *string `json:"duplicate_of" validate:"omitempty,uuid"`
	Deleted     bool    `json:"deleted"`

	SharedVaultUUID     *string `json:"shared_vault_uuid" validate:"omitempty,uuid"`
	KeySystemIdentifier *string `json:"key_system_identifier" validate:"omitempty,uuid"`

	CreatedAtTimestamp *int64 `json:"created_at_timestamp"`
	UpdatedAtTimestamp *int64 `json:"updated_at_timestamp"`

	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

func (r itemHashRequest) toDomain() domain.ItemHash {
	return domain.ItemHash{
		ItemID:              r.ItemID,
		Content:             r.Content,
		ContentType:         r.ContentType,
		EncItemKey:          r.EncItemKey,
		AuthHash:            r.AuthHash,
		ItemsKeyID:          r.ItemsKeyID,
		DuplicateOf:         r.DuplicateOf,
		Deleted:             r.Deleted,
		SharedVaultUUID:     r.SharedVaultUUID,
		KeySystemIdentifier: r.KeySystemIdentifier,
		CreatedAtTimestamp:  r.CreatedAtTimestamp,
		UpdatedAtTimestamp:  r.UpdatedAtTimestamp,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// syncRequest is the full request envelope: the item hash plus the
// session establishing the sync context.
type syncRequest struct {
	Item      itemHashRequest `json:"item"`
	SessionID string          `json:"session_uuid"`
}

// itemResponse is the JSON projection of a saved domain.Item.
type itemResponse struct {
	UUID        string  `json:"uuid"`
	UserUUID    string  `json:"user_uuid"`
	Content     *string `json:"content"`
	ContentType string  `json:"content_type"`
	EncItemKey  *string `json:"enc_item_key"`
	AuthHash    *string `json:"auth_hash"`
	ItemsKeyID  *string `json:"items_key_id"`
	DuplicateOf *string `json:"duplicate_of"`
	Deleted     bool    `json:"deleted"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toResponse(item domain.Item) itemResponse {
	resp := itemResponse{
		UUID:        item.ItemID.String(),
		UserUUID:    item.UserID.String(),
		Content:     item.Content,
		ContentType: item.ContentType,
		EncItemKey:  item.EncItemKey,
		AuthHash:    item.AuthHash,
		ItemsKeyID:  item.ItemsKeyID,
		Deleted:     item.Deleted,
		CreatedAt:   item.Dates.CreatedAt,
		UpdatedAt:   item.Dates.UpdatedAt,
	}
	if item.DuplicateOf != nil {
		s := item.DuplicateOf.String()
		resp.DuplicateOf = &s
	}
	return resp
}

// Sync handles POST /items/sync, applying one item hash for the
// authenticated user (§6). performingUserID is read from the
// X-User-UUID request header, which upstream authentication sets; a
// request without it is rejected as an authentication error.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	performingUserID := r.Header.Get("X-User-UUID")
	if performingUserID == "" {
		apierrors.WriteError(w, apierrors.NewAPIError(apierrors.CodeAuthenticationError, "missing authenticated user"))
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode sync request", "error", err)
		apierrors.WriteError(w, apierrors.ValidationError("invalid request body"))
		return
	}

	if err := requestValidator.Struct(req.Item); err != nil {
		h.logger.Warn("sync request failed field validation", "error", err)
		apierrors.WriteError(w, apierrors.ValidationError(err.Error()))
		return
	}

	hash := req.Item.toDomain()

	itemID, err := uuid.Parse(hash.ItemID)
	if err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("invalid item uuid"))
		return
	}
	userID, err := uuid.Parse(performingUserID)
	if err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("invalid user uuid"))
		return
	}

	existing, err := h.items.FindOneByUUID(r.Context(), itemID, userID)
	if err != nil {
		h.logger.Error("failed to look up existing item", "item_uuid", itemID, "error", err)
		apierrors.WriteError(w, apierrors.ServiceUnavailableError("item store"))
		return
	}

	item, err := h.updater.Apply(r.Context(), existing, hash, req.SessionID, performingUserID)
	if err != nil {
		h.logger.Warn("item sync rejected", "item_uuid", hash.ItemID, "error", err)
		apierrors.WriteError(w, apierrors.ValidationError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(toResponse(item)); err != nil {
		h.logger.Error("failed to encode sync response", "error", err)
	}
}
