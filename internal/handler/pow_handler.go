package handler

import (
	"net/http"

	"hzarena/internal/pkg/errs"
	"hzarena/internal/pkg/logx"
	"hzarena/internal/pkg/req"
	"hzarena/internal/pkg/resp"
)

type PowVerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

type PowTokenResponse struct {
	Token string `json:"token"`
}

// HandlePowChallenge issues a Proof-of-Work challenge for area creation.
func HandlePowChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeDisabled))
			return
		}
		resp.RespondSuccess(w, r, deps.Pow.NewChallenge())
	}
}

// HandlePowVerify redeems a solved challenge for a single-use Proof Token.
func HandlePowVerify(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeDisabled))
			return
		}

		var input PowVerifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.Redeem(input.Nonce, input.Counter)
		if err != nil {
			logx.Debug("PoW proof rejected.", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}
		resp.RespondSuccess(w, r, PowTokenResponse{Token: token})
	}
}
