package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

const returnPage = `<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Оплата прошла</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 50px;">
    <h1>✅ Оплата прошла успешно!</h1>
    <p>Ваша VPN подписка будет отправлена в Telegram в течение минуты.</p>
    <p>Можете закрыть эту страницу и вернуться в Telegram.</p>
</body>
</html>`

// handleReturn is where the gateway redirects the payer after checkout. The
// subscription itself arrives in the chat; this page only reassures.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(returnPage))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ===== admin API =====

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !s.auth.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session mint failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	days := 14
	if q := r.URL.Query().Get("days"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	chart, err := s.statsUC.Chart(r.Context(), days)
	if err != nil {
		s.log.Error().Err(err).Msg("chart query failed")
		writeError(w, http.StatusInternalServerError, "chart unavailable")
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

func (s *Server) handleSquads(w http.ResponseWriter, r *http.Request) {
	squads, err := s.adminUC.Squads(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("squad listing failed")
		writeError(w, http.StatusBadGateway, "panel unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"squads": squads})
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	tgID, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	orders, err := s.adminUC.UserOrders(r.Context(), tgID)
	if err != nil {
		s.log.Error().Err(err).Msg("order listing failed")
		writeError(w, http.StatusInternalServerError, "orders unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) handleUserSubscription(w http.ResponseWriter, r *http.Request) {
	tgID, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.subUC.Status(r.Context(), tgID)
	if err != nil {
		s.log.Error().Err(err).Msg("subscription status failed")
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	tgID, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := s.adminUC.Block(r.Context(), tgID, req.Reason); err != nil {
		s.log.Error().Err(err).Msg("block failed")
		writeError(w, http.StatusInternalServerError, "block failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	tgID, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	removed, err := s.adminUC.Unblock(r.Context(), tgID)
	if err != nil {
		s.log.Error().Err(err).Msg("unblock failed")
		writeError(w, http.StatusInternalServerError, "unblock failed")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "user was not blocked")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unblocked"})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	tgID, ok := tgIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Block  bool   `json:"block"`
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	deleted, err := s.adminUC.Revoke(r.Context(), tgID, req.Block, req.Reason)
	if err != nil {
		s.log.Error().Err(err).Msg("revoke failed")
		writeError(w, http.StatusBadGateway, "revoke failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "revoked", "deleted": deleted})
}

func tgIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid telegram id")
		return 0, false
	}
	return id, true
}
