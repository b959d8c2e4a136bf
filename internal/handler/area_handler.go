/*
Package handler provides HTTP handler functions for listing, inspecting and creating areas.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hzarena/internal/app/area"
	"hzarena/internal/pkg/auth/jwt"
	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/randx"
	"hzarena/internal/pkg/req"
	"hzarena/internal/pkg/resp"
)

// maxAreaCapacity bounds the occupant limit a client may request.
const maxAreaCapacity = 1000

type CreateAreaInput struct {
	// Title of the new area; a random one is generated when empty.
	Title    string `json:"title,omitempty"`
	Password string `json:"password,omitempty"`

	// MaxOccupants overrides the configured default; zero keeps the default.
	MaxOccupants  int      `json:"maxOccupants,omitempty"`
	GuestsAllowed *bool    `json:"guestsAllowed,omitempty"`
	Rooms         []string `json:"rooms,omitempty"`
}

// HandleCreateArea creates an HTTP HandlerFunc to process area creation requests.
func HandleCreateArea(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)

		var input CreateAreaInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.MaxOccupants < 0 || input.MaxOccupants > maxAreaCapacity {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		for _, room := range input.Rooms {
			if !randx.IsValidAreaTitle(room) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
		}

		title := input.Title
		if title == "" {
			generated, err := randx.AreaTitle()
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
				return
			}
			title = generated
		}

		var opts []area.Option
		if input.Password != "" {
			opts = append(opts, area.WithPassword(input.Password))
		}
		if input.MaxOccupants > 0 {
			opts = append(opts, area.WithMaxOccupants(input.MaxOccupants))
		}
		if input.GuestsAllowed != nil {
			opts = append(opts, area.WithGuests(*input.GuestsAllowed))
		}
		if creator, ok := deps.Manager.LookupUser(payload.Identity()); ok {
			opts = append(opts, area.WithCreator(creator))
		}

		a, createErr := deps.Manager.CreateArea(title, opts...)
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}
		for _, room := range input.Rooms {
			a.NewRoom(room)
		}

		logx.Info("Area created over HTTP.", "area", title, "creator", payload.Identity().String())
		resp.RespondSuccess(w, r, newAreaInfo(a, false))
	}
}

// HandleListAreas returns a summary of every open area.
func HandleListAreas(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		areas := deps.Manager.Areas()

		infos := make([]AreaInfo, 0, len(areas))
		for _, a := range areas {
			infos = append(infos, newAreaInfo(a, false))
		}
		resp.RespondSuccess(w, r, infos)
	}
}

// HandleGetArea returns one area with its occupants.
func HandleGetArea(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := deps.Manager.LookupArea(chi.URLParam(r, "title"))
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrAreaNotFound))
			return
		}
		resp.RespondSuccess(w, r, newAreaInfo(a, true))
	}
}
