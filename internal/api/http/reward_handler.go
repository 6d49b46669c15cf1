package http

import (
	"net/http"

	"wastebank-backend/internal/domain"
)

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	filter, err := catalogFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rewards, meta, err := h.services.Rewards.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Rewards retrieved", rewards, meta)
}

func (h *Handler) GetReward(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	reward, err := h.services.Rewards.Get(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Reward retrieved", reward)
}

func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.services.Rewards.Create(r.Context(), caller, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Reward created", reward)
}

func (h *Handler) UpdateReward(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reward, err := h.services.Rewards.Update(r.Context(), caller, pathVar(r, "id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Reward updated", reward)
}

func (h *Handler) DeleteReward(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	if err := h.services.Rewards.Delete(r.Context(), caller, pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Reward deleted", nil)
}

// Redeem exchanges points for a reward immediately.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	redemption, err := h.services.Redemptions.Redeem(r.Context(), caller, req.RewardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Reward redeemed", redemption)
}

// RequestRedemption files a redemption for staff approval.
func (h *Handler) RequestRedemption(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	redemption, err := h.services.Redemptions.Request(r.Context(), caller, req.RewardID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Redemption requested", redemption)
}

func (h *Handler) RedemptionHistory(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	history, err := h.services.Redemptions.History(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Redemption history retrieved", history)
}

func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	filter := domain.RedemptionFilter{
		Page:       q.page(),
		LocationID: q.optional("locationId"),
		UserID:     q.optional("userId"),
	}
	if s := q.optional("status"); s != nil {
		status := domain.RedemptionStatus(*s)
		filter.Status = &status
	}
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}
	redemptions, meta, err := h.services.Redemptions.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Redemptions retrieved", redemptions, meta)
}

func (h *Handler) ApproveRedemption(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	redemption, err := h.services.Redemptions.Approve(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Redemption approved", redemption)
}

func (h *Handler) RejectRedemption(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	redemption, err := h.services.Redemptions.Reject(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Redemption rejected", redemption)
}
