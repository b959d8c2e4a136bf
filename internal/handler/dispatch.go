/*
Package handler provides the routing of inbound WebSocket messages.

This file defines the Dispatcher, which decodes each inbound envelope, applies it to the
lobby and the user's area, and replies with either a result or an error message on the
connection it arrived on.
*/
package handler

import (
	"unicode/utf8"

	"hzarena/internal/app/area"
	"hzarena/internal/app/lobby"
	"hzarena/internal/app/user"
	"hzarena/internal/app/wsconn"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/limiter"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/req"
	"hzarena/internal/pkg/resp"
)

// Dispatcher applies inbound messages on behalf of logged-in users.
type Dispatcher struct {
	manager *lobby.Manager

	// chatLimiter throttles chat per identity.
	chatLimiter *limiter.IPRateLimiter
}

func NewDispatcher(manager *lobby.Manager, chatLimiter *limiter.IPRateLimiter) *Dispatcher {
	return &Dispatcher{manager: manager, chatLimiter: chatLimiter}
}

// Handle applies msg for u, replying on conn. Every inbound message counts as
// activity for u.
func (d *Dispatcher) Handle(u *user.User, conn user.Connection, msg wsconn.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			logx.Logger().Error().
				Interface("panic", r).
				Str("identity", u.Identity().String()).
				Str("msg_type", msg.Type).
				Msg("Recovered from panic in message handler.")
			d.reply(conn, MsgError, resp.WSError(errs.NewError(errs.ErrUnknown), msg.ID))
		}
	}()

	u.Touch()

	var customErr *errs.CustomError
	switch msg.Type {
	case InJoin:
		customErr = d.join(u, conn, msg)
	case InLeave:
		customErr = d.leave(u, conn)
	case InObserve:
		customErr = d.observe(conn, msg)
	case InUnobserve:
		customErr = d.unobserve(conn, msg)
	case InChat:
		customErr = d.chat(u, msg)
	case InRespond:
		customErr = d.respond(u, msg)
	case InAway:
		customErr = d.away(u, msg)
	case InDeafen:
		customErr = d.deafen(u, msg)
	case InEnterRoom:
		customErr = d.enterRoom(u, conn, msg)
	case InReady:
		customErr = d.readyCheck(u)
	default:
		customErr = errs.NewError(errs.ErrUnsupportedMessage, msg.Type)
	}

	if customErr != nil {
		d.reply(conn, MsgError, resp.WSError(customErr, msg.ID))
	}
}

func (d *Dispatcher) reply(conn user.Connection, msgType string, payload any) {
	if err := conn.Send(msgType, payload); err != nil {
		logx.Debug("Failed to reply to client.", "address", conn.Address(), "msg_type", msgType, "error", err)
	}
}

// occupant returns u's occupant record or ErrNotOccupying.
func (d *Dispatcher) occupant(u *user.User) (*area.Occupant, *errs.CustomError) {
	o, ok := d.manager.OccupiedArea(u.Identity())
	if !ok {
		return nil, errs.NewError(errs.ErrNotOccupying)
	}
	return o, nil
}

func (d *Dispatcher) join(u *user.User, conn user.Connection, msg wsconn.Inbound) *errs.CustomError {
	var in AreaRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	o, customErr := d.manager.JoinArea(u, in.Area, in.Password)
	if customErr != nil {
		return customErr
	}

	a := o.Area()
	d.reply(conn, MsgJoined, newAreaInfo(a, true))
	a.Broadcast(MsgOccupantJoined, OccupantPayload{Area: a.Title(), Occupant: newOccupantInfo(a, o)}, o)
	return nil
}

func (d *Dispatcher) leave(u *user.User, conn user.Connection) *errs.CustomError {
	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}
	info := newOccupantInfo(o.Area(), o)

	a, ok := d.manager.LeaveArea(u)
	if !ok {
		return errs.NewError(errs.ErrNotOccupying)
	}

	d.reply(conn, MsgLeft, AreaRequest{Area: a.Title()})
	a.Broadcast(MsgOccupantLeft, OccupantPayload{Area: a.Title(), Occupant: info})
	return nil
}

func (d *Dispatcher) observe(conn user.Connection, msg wsconn.Inbound) *errs.CustomError {
	var in AreaRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	a, ok := d.manager.LookupArea(in.Area)
	if !ok {
		return errs.NewError(errs.ErrAreaNotFound)
	}
	if !a.AddObserver(conn) {
		return errs.NewError(errs.ErrObserveRejected)
	}

	d.reply(conn, MsgObserving, newAreaInfo(a, true))
	return nil
}

func (d *Dispatcher) unobserve(conn user.Connection, msg wsconn.Inbound) *errs.CustomError {
	var in AreaRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	if a, ok := d.manager.LookupArea(in.Area); ok {
		a.RemoveObserver(conn)
	}
	return nil
}

func (d *Dispatcher) chat(u *user.User, msg wsconn.Inbound) *errs.CustomError {
	var in ChatRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}
	if in.Text == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}
	if utf8.RuneCountInString(in.Text) > maxChatRunes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}
	if d.chatLimiter != nil && !d.chatLimiter.Allow(u.Identity().String()) {
		return errs.NewError(errs.ErrRateLimitExceeded)
	}

	a := o.Area()
	a.Touch()

	payload := ChatPayload{Area: a.Title(), From: o.DisplayName(), Text: in.Text}
	if r := o.Room(); r != a.Room {
		payload.Room = r.Title()
		r.Broadcast(MsgChat, payload)
		return nil
	}
	a.BroadcastAudible(MsgChat, payload)
	return nil
}

func (d *Dispatcher) respond(u *user.User, msg wsconn.Inbound) *errs.CustomError {
	var in RespondRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}
	if in.Type == "" {
		return errs.NewError(errs.ErrInvalidParams)
	}

	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}

	o.SetResponse(in.Type, in.Value)
	return nil
}

func (d *Dispatcher) away(u *user.User, msg wsconn.Inbound) *errs.CustomError {
	var in AwayRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}

	o.SetAway(in.Away)
	a := o.Area()
	a.Broadcast(MsgOccupantState, OccupantPayload{Area: a.Title(), Occupant: newOccupantInfo(a, o)})
	return nil
}

func (d *Dispatcher) deafen(u *user.User, msg wsconn.Inbound) *errs.CustomError {
	var in DeafenRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}

	o.SetDeafened(in.Deafened)
	return nil
}

// enterRoom moves the occupant between the sub-rooms set up when the area was created.
func (d *Dispatcher) enterRoom(u *user.User, conn user.Connection, msg wsconn.Inbound) *errs.CustomError {
	var in EnterRoomRequest
	if customErr := req.BindPayload(msg.Payload, &in); customErr != nil {
		return customErr
	}

	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}

	a := o.Area()
	if in.Room == "" {
		o.EnterRoom(nil)
	} else {
		r, ok := a.SubRoom(in.Room)
		if !ok {
			return errs.NewError(errs.ErrInvalidParams)
		}
		o.EnterRoom(r)
	}

	d.reply(conn, MsgRoomEntered, EnterRoomRequest{Room: in.Room})
	return nil
}

// readyCheck asks every occupant of u's area to confirm and broadcasts the outcome.
// A check already pending for the area is replaced.
func (d *Dispatcher) readyCheck(u *user.User) *errs.CustomError {
	o, customErr := d.occupant(u)
	if customErr != nil {
		return customErr
	}

	a := o.Area()
	timeout := d.manager.Config().ResponseTimeout

	// a superseded check resolves inside GetConfirmation, before the new phase is set
	confirmed := a.Responses().GetConfirmation(ReadyResponseType, timeout)
	timeline, timed := lobby.Timeline(a)
	if timed {
		timeline.TryAdvance(lobby.PhaseReadyCheck, timeout)
	}

	confirmed.OnComplete(func(ready bool) {
		a.Broadcast(MsgReadyResult, ReadyResultPayload{Area: a.Title(), Ready: ready})
		if timed {
			d.afterReadyCheck(timeline, ready)
		}
	})
	return nil
}

// afterReadyCheck counts down to play once everyone confirmed and falls back to
// waiting otherwise. Entering play drops any request still pending.
func (d *Dispatcher) afterReadyCheck(timeline *area.PhaseManager[string], ready bool) {
	if !ready {
		timeline.TryAdvance(lobby.PhaseWaiting, 0)
		return
	}

	countdown := d.manager.Config().CountdownDuration
	timeline.TryAdvance(lobby.PhaseCountdown, countdown, area.Then(func() {
		timeline.TryAdvance(lobby.PhasePlaying, 0, area.AbandonResponses())
	}))
}
