package services

import (
	"github.com/anjiri1684/teacherin/models"
	"github.com/google/uuid"
)

type Action string

const (
	ActSlotCreate Action = "slot.create"
	ActSlotDelete Action = "slot.delete"

	ActBookingCreate  Action = "booking.create"
	ActBookingView    Action = "booking.view"
	ActBookingCancel  Action = "booking.cancel"
	ActBookingConfirm Action = "booking.confirm"
	ActBookingSetAny  Action = "booking.set_any"

	ActSessionUpsert Action = "session.upsert"
	ActSessionStart  Action = "session.start"
	ActSessionEnd    Action = "session.end"

	ActPaymentInitiate Action = "payment.initiate"
	ActPaymentView     Action = "payment.view"
	ActPaymentOverride Action = "payment.override"

	ActReviewCreate Action = "review.create"
	ActReviewUpdate Action = "review.update"
	ActReviewDelete Action = "review.delete"

	ActMaterialCreate Action = "material.create"
	ActMaterialUpdate Action = "material.update"
	ActMaterialDelete Action = "material.delete"

	ActOrderCreate   Action = "order.create"
	ActOrderView     Action = "order.view"
	ActOrderCancel   Action = "order.cancel"
	ActOrderSetAny   Action = "order.set_any"
	ActOrderDownload Action = "order.download"

	ActPayoutRequest Action = "payout.request"
	ActPayoutProcess Action = "payout.process"

	ActFavorite    Action = "favorite.manage"
	ActSkillCreate Action = "skill.create"
	ActAdmin       Action = "admin.manage"
)

type scope int

const (
	scopeOwn scope = iota + 1
	scopeAny
)

// permissions is the single role x action table. A missing entry denies.
// scopeOwn requires the resource owner to be the caller's profile.
var permissions = map[Action]map[string]scope{
	ActSlotCreate: {models.RoleTeacher: scopeOwn},
	ActSlotDelete: {models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},

	ActBookingCreate:  {models.RoleStudent: scopeOwn},
	ActBookingView:    {models.RoleStudent: scopeOwn, models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},
	ActBookingCancel:  {models.RoleStudent: scopeOwn, models.RoleAdmin: scopeAny},
	ActBookingConfirm: {models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},
	ActBookingSetAny:  {models.RoleAdmin: scopeAny},

	ActSessionUpsert: {models.RoleTeacher: scopeOwn},
	ActSessionStart:  {models.RoleTeacher: scopeOwn},
	ActSessionEnd:    {models.RoleTeacher: scopeOwn},

	ActPaymentInitiate: {models.RoleStudent: scopeOwn},
	ActPaymentView:     {models.RoleStudent: scopeOwn, models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},
	ActPaymentOverride: {models.RoleAdmin: scopeAny},

	ActReviewCreate: {models.RoleStudent: scopeOwn},
	ActReviewUpdate: {models.RoleStudent: scopeOwn},
	ActReviewDelete: {models.RoleStudent: scopeOwn, models.RoleAdmin: scopeAny},

	ActMaterialCreate: {models.RoleTeacher: scopeOwn},
	ActMaterialUpdate: {models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},
	ActMaterialDelete: {models.RoleTeacher: scopeOwn, models.RoleAdmin: scopeAny},

	ActOrderCreate:   {models.RoleStudent: scopeOwn},
	ActOrderView:     {models.RoleStudent: scopeOwn, models.RoleAdmin: scopeAny},
	ActOrderCancel:   {models.RoleStudent: scopeOwn, models.RoleAdmin: scopeAny},
	ActOrderSetAny:   {models.RoleAdmin: scopeAny},
	ActOrderDownload: {models.RoleStudent: scopeOwn},

	ActPayoutRequest: {models.RoleTeacher: scopeOwn},
	ActPayoutProcess: {models.RoleAdmin: scopeAny},

	ActFavorite:    {models.RoleStudent: scopeOwn},
	ActSkillCreate: {models.RoleAdmin: scopeAny},
	ActAdmin:       {models.RoleAdmin: scopeAny},
}

// Can evaluates the permission table for p acting on a resource owned
// by ownerIDs. A resource may have several owners (a booking belongs to
// both its student and its teacher); owning any one is enough.
func Can(p Principal, action Action, ownerIDs ...uuid.UUID) bool {
	s, ok := permissions[action][p.Role]
	if !ok {
		return false
	}
	if s == scopeAny {
		return true
	}
	for _, id := range ownerIDs {
		if p.Owns(id) {
			return true
		}
	}
	return false
}

func Authorize(p Principal, action Action, ownerIDs ...uuid.UUID) error {
	if p.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if !Can(p, action, ownerIDs...) {
		return ErrForbidden
	}
	return nil
}

// statusActions maps a requested booking status to the action that
// grants it. Targets not listed need booking.set_any.
var statusActions = map[string]Action{
	models.BookingCancelled: ActBookingCancel,
	models.BookingConfirmed: ActBookingConfirm,
}

func bookingStatusAction(to string) Action {
	if a, ok := statusActions[to]; ok {
		return a
	}
	return ActBookingSetAny
}
